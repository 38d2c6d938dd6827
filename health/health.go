// Package health publishes and tracks agent health over the bus.
//
// A Reporter periodically sends an agent's health report as a
// notification on "health.<agent-id>". A Monitor subscribes to
// "health.*", remembers the last report per agent, and fires callbacks
// when an agent's reports stop arriving.
package health

import (
	"errors"
	"time"

	"github.com/vinayprograms/agentbus/agent"
)

// Common errors.
var (
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted indicates Stop was called before Start.
	ErrNotStarted = errors.New("not started")
)

// SubjectPrefix is the target namespace health reports are sent to.
const SubjectPrefix = "health."

// Subject returns the bus target for an agent's health reports.
func Subject(agentID string) string {
	return SubjectPrefix + agentID
}

// Report is the payload carried by a health notification.
type Report struct {
	// AgentID identifies the reporting agent.
	AgentID string `json:"agent_id"`

	// Health is the agent's self-reported state.
	Health agent.Health `json:"health"`

	// SentAt is when the report was published.
	SentAt time.Time `json:"sent_at"`
}

// Source supplies an agent's identity and current health. agent.Base
// satisfies it.
type Source interface {
	ID() string
	Health() agent.Health
}
