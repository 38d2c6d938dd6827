package agent

import "testing"

func TestHealthTransitions(t *testing.T) {
	tests := []struct {
		from, to HealthStatus
		want     bool
	}{
		{StatusStarting, StatusHealthy, true},
		{StatusStarting, StatusStopped, true},
		{StatusHealthy, StatusDegraded, true},
		{StatusDegraded, StatusHealthy, true},
		{StatusDegraded, StatusUnhealthy, true},
		{StatusUnhealthy, StatusHealthy, true},
		{StatusHealthy, StatusStopped, true},
		{StatusUnhealthy, StatusStopped, true},
		{StatusStopped, StatusHealthy, false},
		{StatusStopped, StatusStarting, false},
		{StatusStopped, StatusDegraded, false},
		{StatusHealthy, StatusStarting, false},
		{StatusStopped, StatusStopped, true},
		{StatusHealthy, StatusHealthy, true},
	}

	for _, tt := range tests {
		if got := validTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("validTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestHealthStatusTerminal(t *testing.T) {
	if !StatusStopped.IsTerminal() {
		t.Error("stopped must be terminal")
	}
	for _, s := range []HealthStatus{StatusStarting, StatusHealthy, StatusDegraded, StatusUnhealthy} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}
