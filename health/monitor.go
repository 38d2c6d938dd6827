package health

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/agentbus/bus"
	busterrors "github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
)

// MonitorConfig configures a health monitor.
type MonitorConfig struct {
	// Bus carries the reports.
	Bus *bus.Bus

	// Timeout after which a silent agent is considered unhealthy.
	// Default: 30 seconds.
	Timeout time.Duration

	// CheckInterval between staleness sweeps. Default: 5 seconds.
	CheckInterval time.Duration

	// OnUnhealthy fires once per outage when an agent's reports stop.
	// Optional.
	OnUnhealthy func(agentID string)

	// Logger receives decode failures. Default: discard.
	Logger logging.Logger
}

// Monitor subscribes to "health.*" and tracks the last report per agent.
type Monitor struct {
	bus           *bus.Bus
	timeout       time.Duration
	checkInterval time.Duration
	onUnhealthy   func(string)
	logger        logging.Logger

	mu       sync.RWMutex
	lastSeen map[string]Report
	reported map[string]bool // outages already fired

	running atomic.Bool
	sub     *bus.Subscription
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor. It does not subscribe until Start.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Bus == nil {
		return nil, busterrors.InvalidInput("monitor needs a bus")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop{}
	}
	return &Monitor{
		bus:           cfg.Bus,
		timeout:       cfg.Timeout,
		checkInterval: cfg.CheckInterval,
		onUnhealthy:   cfg.OnUnhealthy,
		logger:        cfg.Logger,
		lastSeen:      make(map[string]Report),
		reported:      make(map[string]bool),
	}, nil
}

// Start subscribes to the health namespace and begins staleness sweeps.
func (m *Monitor) Start(ctx context.Context) error {
	if m.running.Swap(true) {
		return ErrAlreadyStarted
	}

	// Agent ids may themselves be dotted, so span all trailing segments.
	sub, err := m.bus.Subscribe(SubjectPrefix+"**", m.handleReport)
	if err != nil {
		m.running.Store(false)
		return err
	}
	m.sub = sub

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run()
	return nil
}

// handleReport records an incoming health report.
func (m *Monitor) handleReport(ctx context.Context, msg *bus.Message) (bus.Result, error) {
	var report Report
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		m.logger.Warn("health_decode_failure", map[string]interface{}{
			"from":  msg.From,
			"error": err.Error(),
		})
		return bus.None(), nil
	}
	if report.AgentID == "" {
		report.AgentID = strings.TrimPrefix(msg.To, SubjectPrefix)
	}
	if report.SentAt.IsZero() {
		report.SentAt = time.Now()
	}

	m.mu.Lock()
	m.lastSeen[report.AgentID] = report
	delete(m.reported, report.AgentID) // alive again, arm the callback
	m.mu.Unlock()
	return bus.None(), nil
}

// run sweeps for agents whose reports have stopped.
func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep fires OnUnhealthy once for each agent past the timeout.
func (m *Monitor) sweep() {
	now := time.Now()

	m.mu.Lock()
	var stale []string
	for id, report := range m.lastSeen {
		if now.Sub(report.SentAt) > m.timeout && !m.reported[id] {
			m.reported[id] = true
			stale = append(stale, id)
		}
	}
	cb := m.onUnhealthy
	m.mu.Unlock()

	if cb == nil {
		return
	}
	for _, id := range stale {
		cb(id)
	}
}

// IsAlive reports whether the agent has reported within the timeout.
func (m *Monitor) IsAlive(agentID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.lastSeen[agentID]
	if !ok {
		return false
	}
	return time.Since(report.SentAt) <= m.timeout
}

// LastReport returns the most recent report for an agent.
func (m *Monitor) LastReport(agentID string) (Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.lastSeen[agentID]
	return report, ok
}

// Agents returns every agent id the monitor has seen.
func (m *Monitor) Agents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.lastSeen))
	for id := range m.lastSeen {
		out = append(out, id)
	}
	return out
}

// Stop unsubscribes and halts the sweep loop.
func (m *Monitor) Stop() error {
	if !m.running.Swap(false) {
		return ErrNotStarted
	}
	close(m.stopCh)
	<-m.doneCh
	if m.sub != nil {
		return m.sub.Unsubscribe()
	}
	return nil
}
