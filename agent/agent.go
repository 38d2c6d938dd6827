package agent

import (
	"context"
	"encoding/json"
)

// Agent is the contract every agent implements. Base supplies everything
// except Execute.
type Agent interface {
	// ID returns the agent's bus address.
	ID() string

	// Initialize binds the context, subscribes the agent's handler on
	// the bus, and loads declared plugins. Moves health to healthy.
	Initialize(ctx context.Context, actx *Context) error

	// Execute is the agent-specific unit of work.
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

	// Cleanup unsubscribes and moves health to stopped, terminally.
	Cleanup(ctx context.Context) error

	// Health returns the current health report.
	Health() Health
}

// Executor is the function Base invokes for each delivered message.
type Executor func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// DelegateRequest is the payload an agent sends when delegating work.
type DelegateRequest struct {
	Type    string          `json:"type"`
	Task    string          `json:"task"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
