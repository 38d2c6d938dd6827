package health

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/agentbus/bus"
	busterrors "github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
)

// ReporterConfig configures a health reporter.
type ReporterConfig struct {
	// Bus carries the reports.
	Bus *bus.Bus

	// Source supplies the health to publish.
	Source Source

	// Interval between reports. Default: 10 seconds.
	Interval time.Duration

	// Logger receives publish failures. Default: discard.
	Logger logging.Logger
}

// Reporter periodically publishes an agent's health on the bus.
type Reporter struct {
	bus      *bus.Bus
	source   Source
	interval time.Duration
	logger   logging.Logger

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReporter creates a reporter. It does not publish until Start.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if cfg.Bus == nil {
		return nil, busterrors.InvalidInput("reporter needs a bus")
	}
	if cfg.Source == nil {
		return nil, busterrors.InvalidInput("reporter needs a source")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop{}
	}
	return &Reporter{
		bus:      cfg.Bus,
		source:   cfg.Source,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}, nil
}

// Start begins publishing at the configured interval, sending one
// report immediately.
func (r *Reporter) Start(ctx context.Context) error {
	if r.running.Swap(true) {
		return ErrAlreadyStarted
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.run(ctx)
	return nil
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.doneCh)

	r.publish(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.publish(ctx)
		}
	}
}

// publish sends one report. A missing monitor is normal and not logged.
func (r *Reporter) publish(ctx context.Context) {
	report := Report{
		AgentID: r.source.ID(),
		Health:  r.source.Health(),
		SentAt:  time.Now(),
	}
	payload, err := json.Marshal(report)
	if err != nil {
		r.logger.Error("health_marshal_failure", map[string]interface{}{
			"agent": report.AgentID,
			"error": err.Error(),
		})
		return
	}

	msg := bus.NewMessage(report.AgentID, Subject(report.AgentID), bus.TypeNotification, payload)
	if err := r.bus.Send(ctx, msg); err != nil && !busterrors.Is(err, busterrors.ErrCodeNoHandlers) {
		r.logger.Warn("health_publish_failure", map[string]interface{}{
			"agent": report.AgentID,
			"error": err.Error(),
		})
	}
}

// Stop halts publishing and waits for the loop to exit.
func (r *Reporter) Stop() error {
	if !r.running.Swap(false) {
		return ErrNotStarted
	}
	close(r.stopCh)
	<-r.doneCh
	return nil
}
