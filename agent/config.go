package agent

import "github.com/vinayprograms/agentbus/errors"

// Category classifies an agent's role in a host.
type Category string

const (
	CategoryPrimary     Category = "primary"
	CategorySpecialized Category = "specialized"
	CategoryUtility     Category = "utility"
)

// ErrorMode selects how an agent treats recoverable execution errors.
type ErrorMode string

const (
	// ErrorModeStrict fails fast on any error.
	ErrorModeStrict ErrorMode = "strict"

	// ErrorModeLenient logs and continues where possible.
	ErrorModeLenient ErrorMode = "lenient"

	// ErrorModeAdaptive escalates from lenient to strict on repetition.
	ErrorModeAdaptive ErrorMode = "adaptive"
)

// Behavior holds an agent's behavioral flags.
type Behavior struct {
	// Conservative prefers safe, reversible actions.
	Conservative bool `json:"conservative" toml:"conservative"`

	// RequireConfirmation pauses before destructive operations.
	RequireConfirmation bool `json:"require_confirmation" toml:"require_confirmation"`

	// PreserveContext keeps working state across executions.
	PreserveContext bool `json:"preserve_context" toml:"preserve_context"`

	// AutoCommit lets the agent commit its own results.
	AutoCommit bool `json:"auto_commit" toml:"auto_commit"`

	// ErrorMode defaults to lenient when empty.
	ErrorMode ErrorMode `json:"error_mode" toml:"error_mode"`
}

// Hook is a declarative event binding evaluated by the host.
type Hook struct {
	Event     string `json:"event" toml:"event"`
	Action    string `json:"action" toml:"action"`
	Condition string `json:"condition,omitempty" toml:"condition"`
	Priority  int    `json:"priority" toml:"priority"`
}

// Config is a declarative agent description. The registry instantiates a
// concrete implementation from the Kind field; identifiers carry no
// routing meaning beyond addressing.
type Config struct {
	// ID is the agent's bus address. Required, unique per registry.
	ID string `json:"id" toml:"id"`

	// Kind selects the concrete implementation from the registry's
	// factory table. Required.
	Kind string `json:"kind" toml:"kind"`

	Name     string   `json:"name" toml:"name"`
	Version  string   `json:"version" toml:"version"`
	Category Category `json:"category" toml:"category"`

	// Capabilities are free-form tags describing what the agent can do.
	Capabilities []string `json:"capabilities" toml:"capabilities"`

	Permissions Permissions `json:"permissions" toml:"permissions"`
	Behavior    Behavior    `json:"behavior" toml:"behavior"`

	// Environment is merged into the agent's context environment.
	Environment map[string]string `json:"environment" toml:"environment"`

	// Plugins lists plugin names resolved at Initialize. Failures are
	// logged and skipped; they never abort initialization.
	Plugins []string `json:"plugins" toml:"plugins"`

	Hooks []Hook `json:"hooks" toml:"hooks"`
}

// Validate checks the config invariants the registry depends on.
func (c *Config) Validate() error {
	if c.ID == "" {
		return errors.InvalidInput("agent config missing id")
	}
	if c.Kind == "" {
		return errors.InvalidInput("agent config missing kind")
	}
	switch c.Category {
	case "", CategoryPrimary, CategorySpecialized, CategoryUtility:
	default:
		return errors.InvalidInput("unknown agent category: " + string(c.Category))
	}
	switch c.Behavior.ErrorMode {
	case "", ErrorModeStrict, ErrorModeLenient, ErrorModeAdaptive:
	default:
		return errors.InvalidInput("unknown error mode: " + string(c.Behavior.ErrorMode))
	}
	return nil
}
