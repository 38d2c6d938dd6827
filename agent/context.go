package agent

import (
	"github.com/vinayprograms/agentbus/bus"
	"github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
	"github.com/vinayprograms/agentbus/storage"
)

// Context is the execution environment the host assembles for one agent
// instance. It is the only way an agent obtains a bus reference.
type Context struct {
	// AgentID is the instance's bus address.
	AgentID string

	// SessionID groups instances belonging to one host session.
	SessionID string

	// UserID optionally identifies the user the session acts for.
	UserID string

	// Workspace is the agent's working directory.
	Workspace string

	// Environment holds agent-visible environment variables.
	Environment map[string]string

	// Permissions is the instance's immutable capability set.
	Permissions Permissions

	// Bus carries all inter-agent communication.
	Bus *bus.Bus

	// Logger receives lifecycle, delegation, and plugin events.
	Logger logging.Logger

	// Storage is opaque key-value persistence for the agent's own
	// state. The runtime never inspects stored values.
	Storage storage.Store

	// Plugins resolves the plugin names declared in the agent config.
	// Optional; when nil every declared plugin fails to load (logged,
	// not fatal).
	Plugins PluginResolver
}

// validate checks the fields the runtime cannot work without.
func (c *Context) validate() error {
	if c == nil {
		return errors.InvalidInput("agent context is nil")
	}
	if c.AgentID == "" {
		return errors.InvalidInput("agent context missing agent id")
	}
	if c.Bus == nil {
		return errors.InvalidInput("agent context missing bus")
	}
	if c.Logger == nil {
		c.Logger = logging.Nop{}
	}
	return nil
}
