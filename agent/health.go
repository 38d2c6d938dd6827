package agent

import "time"

// HealthStatus is an agent's self-reported operability state.
type HealthStatus string

const (
	// StatusStarting is the state at construction, before Initialize.
	StatusStarting HealthStatus = "starting"

	// StatusHealthy is entered only after a successful Initialize.
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded marks reduced but functional operation.
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy marks an agent that should not receive work.
	StatusUnhealthy HealthStatus = "unhealthy"

	// StatusStopped is terminal, entered by Cleanup. No transition
	// leaves it.
	StatusStopped HealthStatus = "stopped"
)

// String returns the string representation of the status.
func (s HealthStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status admits no further transitions.
func (s HealthStatus) IsTerminal() bool {
	return s == StatusStopped
}

// Health is a point-in-time health report.
type Health struct {
	// Status is the current lifecycle state.
	Status HealthStatus `json:"status"`

	// LastCheck is when the status was last set or confirmed.
	LastCheck time.Time `json:"last_check"`

	// Message optionally explains the status.
	Message string `json:"message,omitempty"`

	// Metrics carries implementation-specific gauges.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// validTransition reports whether the state machine permits moving from
// one status to another. Stopped is absorbing, starting is entered only
// at construction, and re-confirming the current status is always
// allowed.
func validTransition(from, to HealthStatus) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusStarting {
		return false
	}
	return true
}
