package agent

import (
	"context"

	"github.com/vinayprograms/agentbus/errors"
)

// Plugin extends an agent at initialization time.
type Plugin interface {
	// Name identifies the plugin.
	Name() string

	// Attach hooks the plugin into the agent's context. An error marks
	// this plugin as failed; initialization continues without it.
	Attach(ctx context.Context, actx *Context) error
}

// PluginResolver maps declared plugin names to implementations.
type PluginResolver interface {
	Resolve(name string) (Plugin, error)
}

// PluginMap is a PluginResolver backed by a map, for hosts that wire
// plugins statically.
type PluginMap map[string]Plugin

// Resolve returns the named plugin or NOT_FOUND.
func (m PluginMap) Resolve(name string) (Plugin, error) {
	p, ok := m[name]
	if !ok {
		return nil, errors.FromCode(errors.ErrCodeNotFound, errors.WithMetadata("plugin", name))
	}
	return p, nil
}
