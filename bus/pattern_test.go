package bus

import "testing"

func TestPatternMatching(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		target  string
		want    bool
	}{
		{"exact match", "git.agent", "git.agent", true},
		{"exact mismatch", "git.agent", "git.worker", false},
		{"segment wildcard matches child", "test.*", "test.agent", true},
		{"segment wildcard matches any child", "test.*", "test.anything", true},
		{"wildcard does not match bare prefix", "test.*", "testing", false},
		{"wildcard does not match other namespace", "test.*", "other.agent", false},
		{"wildcard does not cross separator", "test.*", "test.a.b", false},
		{"super wildcard crosses separators", "health.**", "health.git.agent", true},
		{"super wildcard matches single segment", "health.**", "health.solo", true},
		{"super wildcard needs the prefix", "health.**", "git.agent", false},
		{"leading wildcard", "*.agent", "git.agent", true},
		{"leading wildcard needs a segment", "*.agent", "agent", false},
		{"match-all matches plain id", "*", "orchestrator", true},
		{"match-all matches dotted id", "*", "health.git.agent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := compilePattern(tt.pattern)
			if err != nil {
				t.Fatalf("compilePattern(%q): %v", tt.pattern, err)
			}
			if got := p.matches(tt.target); got != tt.want {
				t.Errorf("pattern %q target %q: got %v, want %v", tt.pattern, tt.target, got, tt.want)
			}
		})
	}
}

func TestPatternInvalid(t *testing.T) {
	if _, err := compilePattern(""); err == nil {
		t.Error("expected error for empty pattern")
	}
	if _, err := compilePattern("test.["); err == nil {
		t.Error("expected error for malformed glob")
	}
}

func TestPatternString(t *testing.T) {
	p, err := compilePattern("health.*")
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "health.*" {
		t.Errorf("String() = %q, want %q", p.String(), "health.*")
	}
}
