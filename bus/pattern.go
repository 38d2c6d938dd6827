package bus

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/vinayprograms/agentbus/errors"
)

// pattern matches subscription patterns against message targets.
// A pattern is an exact agent id, the catch-all "*", or a dot-delimited
// glob where "*" spans exactly one segment: "test.*" matches "test.agent"
// but not "testing" or "test.a.b". "**" spans any number of segments,
// which namespaced listeners use to cover dotted agent ids.
type pattern struct {
	raw   string
	all   bool
	exact bool
	g     glob.Glob
}

// compilePattern validates and compiles a subscription pattern.
func compilePattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, errors.InvalidInput("subscription pattern is empty")
	}
	if strings.Contains(raw, " ") {
		return nil, errors.InvalidInput("subscription pattern contains spaces")
	}

	p := &pattern{raw: raw}

	switch {
	case raw == BroadcastTarget:
		p.all = true
	case !strings.Contains(raw, "*"):
		p.exact = true
	default:
		// "." as separator keeps "*" within a single segment.
		g, err := glob.Compile(raw, '.')
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "invalid subscription pattern")
		}
		p.g = g
	}

	return p, nil
}

// matches reports whether the pattern covers a message target.
func (p *pattern) matches(target string) bool {
	switch {
	case p.all:
		return true
	case p.exact:
		return p.raw == target
	default:
		return p.g.Match(target)
	}
}

// String returns the raw pattern.
func (p *pattern) String() string {
	return p.raw
}
