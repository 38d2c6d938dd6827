package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vinayprograms/agentbus/bus"
	"github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
	"github.com/vinayprograms/agentbus/telemetry"
)

// Base implements everything in the Agent contract except Execute.
// Concrete agents embed it and hand their Execute to Initialize.
type Base struct {
	cfg Config

	mu     sync.RWMutex
	actx   *Context
	exec   Executor
	sub    *bus.Subscription
	health Health
}

// NewBase creates a Base in the starting state.
func NewBase(cfg Config) Base {
	return Base{
		cfg: cfg,
		health: Health{
			Status:    StatusStarting,
			LastCheck: time.Now(),
		},
	}
}

// ID returns the agent's bus address.
func (b *Base) ID() string {
	return b.cfg.ID
}

// Config returns a copy of the agent's declarative config.
func (b *Base) Config() Config {
	return b.cfg
}

// Initialize binds the context, subscribes the agent on its own id, and
// loads declared plugins best-effort. A plugin that fails to resolve or
// attach is logged and skipped. On success health moves to healthy.
func (b *Base) Initialize(ctx context.Context, actx *Context, exec Executor) error {
	if err := actx.validate(); err != nil {
		return err
	}
	if exec == nil {
		return errors.InvalidInput("executor is nil")
	}

	b.mu.Lock()
	if b.health.Status.IsTerminal() {
		b.mu.Unlock()
		return errors.FromCode(errors.ErrCodeLifecycle, errors.WithAgentID(b.cfg.ID))
	}
	if b.sub != nil {
		b.mu.Unlock()
		return errors.Internal("agent already initialized", errors.WithAgentID(b.cfg.ID))
	}
	b.mu.Unlock()

	// Permissions are fixed for the instance's lifetime; cut the host's
	// slices loose so later mutation cannot leak in.
	actx.Permissions = actx.Permissions.clone()

	if actx.Environment == nil && len(b.cfg.Environment) > 0 {
		actx.Environment = make(map[string]string, len(b.cfg.Environment))
	}
	for k, v := range b.cfg.Environment {
		if _, ok := actx.Environment[k]; !ok {
			actx.Environment[k] = v
		}
	}

	sub, err := actx.Bus.Subscribe(actx.AgentID, b.handleMessage)
	if err != nil {
		return err
	}

	b.loadPlugins(ctx, actx)

	b.mu.Lock()
	b.actx = actx
	b.exec = exec
	b.sub = sub
	from := b.health.Status
	b.health = Health{Status: StatusHealthy, LastCheck: time.Now()}
	b.mu.Unlock()

	logging.Lifecycle(actx.Logger, actx.AgentID, string(from), string(StatusHealthy))
	return nil
}

// loadPlugins resolves and attaches each declared plugin. Failures never
// abort initialization.
func (b *Base) loadPlugins(ctx context.Context, actx *Context) {
	for _, name := range b.cfg.Plugins {
		if actx.Plugins == nil {
			logging.PluginFailure(actx.Logger, actx.AgentID, name,
				errors.Internal("no plugin resolver configured"))
			continue
		}
		p, err := actx.Plugins.Resolve(name)
		if err != nil {
			logging.PluginFailure(actx.Logger, actx.AgentID, name, err)
			continue
		}
		if err := p.Attach(ctx, actx); err != nil {
			logging.PluginFailure(actx.Logger, actx.AgentID, name, err)
		}
	}
}

// handleMessage is the agent's bus handler: run the executor over the
// payload and reply when the message asks for a response.
func (b *Base) handleMessage(ctx context.Context, msg *bus.Message) (bus.Result, error) {
	b.mu.RLock()
	exec := b.exec
	b.mu.RUnlock()
	if exec == nil {
		return bus.None(), errors.Internal("agent not initialized", errors.WithAgentID(b.cfg.ID))
	}

	out, err := exec(ctx, msg.Payload)
	if err != nil {
		return bus.None(), errors.Wrap(err, "execute failed", errors.WithAgentID(b.cfg.ID))
	}
	if msg.Type == bus.TypeRequest && msg.RequiresResponse {
		return bus.Reply(out), nil
	}
	return bus.None(), nil
}

// HasPermission reports whether the action is permitted for this
// instance. See Permissions.Allows for the resolution order.
func (b *Base) HasPermission(action string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.actx == nil {
		return false
	}
	return b.actx.Permissions.Allows(action)
}

// Delegate asks another agent to perform a task. Two checks run before
// any message leaves: the delegation capability, then the target
// allow-list. A distinct PERMISSION_DENIED identifies which gate failed.
func (b *Base) Delegate(ctx context.Context, task, target string, payload json.RawMessage) (json.RawMessage, error) {
	b.mu.RLock()
	actx := b.actx
	b.mu.RUnlock()
	if actx == nil {
		return nil, errors.Internal("agent not initialized", errors.WithAgentID(b.cfg.ID))
	}

	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartDelegateSpan(ctx, actx.AgentID, target, task)

	if !actx.Permissions.Delegation.CanDelegate {
		err := errors.PermissionDenied("delegation not permitted", errors.WithAgentID(actx.AgentID))
		logging.Delegation(actx.Logger, actx.AgentID, target, task, false, "delegation not permitted")
		tracer.EndDelegateSpan(span, err)
		return nil, err
	}
	if !actx.Permissions.AllowsTarget(target) {
		err := errors.PermissionDenied("delegation target not allowed: "+target,
			errors.WithAgentID(actx.AgentID), errors.WithTarget(target))
		logging.Delegation(actx.Logger, actx.AgentID, target, task, false, "target not in allow-list")
		tracer.EndDelegateSpan(span, err)
		return nil, err
	}

	logging.Delegation(actx.Logger, actx.AgentID, target, task, true, "")

	body, err := json.Marshal(DelegateRequest{Type: "delegate", Task: task, Payload: payload})
	if err != nil {
		tracer.EndDelegateSpan(span, err)
		return nil, errors.Wrap(err, "marshal delegate request")
	}

	resp, err := actx.Bus.Request(ctx, actx.AgentID, target, body, 0)
	tracer.EndDelegateSpan(span, err)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// SendMessage constructs an envelope with a generated id and medium
// priority, then sends it.
func (b *Base) SendMessage(ctx context.Context, to string, typ bus.MessageType, payload json.RawMessage) error {
	b.mu.RLock()
	actx := b.actx
	b.mu.RUnlock()
	if actx == nil {
		return errors.Internal("agent not initialized", errors.WithAgentID(b.cfg.ID))
	}
	return actx.Bus.Send(ctx, bus.NewMessage(actx.AgentID, to, typ, payload))
}

// RequestFrom is a thin pass-through to the bus's Request. A zero
// timeout uses the bus default.
func (b *Base) RequestFrom(ctx context.Context, target string, payload json.RawMessage, timeout time.Duration) (*bus.Message, error) {
	b.mu.RLock()
	actx := b.actx
	b.mu.RUnlock()
	if actx == nil {
		return nil, errors.Internal("agent not initialized", errors.WithAgentID(b.cfg.ID))
	}
	return actx.Bus.Request(ctx, actx.AgentID, target, payload, timeout)
}

// ReportHealth records a self-reported status change. Transitions out of
// stopped, or back into starting, are rejected with LIFECYCLE.
func (b *Base) ReportHealth(status HealthStatus, message string) error {
	b.mu.Lock()
	from := b.health.Status
	if !validTransition(from, status) {
		b.mu.Unlock()
		return errors.FromCode(errors.ErrCodeLifecycle,
			errors.WithAgentID(b.cfg.ID),
			errors.WithMetadata("from", string(from)),
			errors.WithMetadata("to", string(status)))
	}
	b.health.Status = status
	b.health.Message = message
	b.health.LastCheck = time.Now()
	logger := logging.Logger(logging.Nop{})
	if b.actx != nil {
		logger = b.actx.Logger
	}
	b.mu.Unlock()

	if from != status {
		logging.Lifecycle(logger, b.cfg.ID, string(from), string(status))
	}
	return nil
}

// ReportMetrics merges gauges into the agent's health report.
func (b *Base) ReportMetrics(metrics map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.health.Metrics == nil {
		b.health.Metrics = make(map[string]float64, len(metrics))
	}
	for k, v := range metrics {
		b.health.Metrics[k] = v
	}
	b.health.LastCheck = time.Now()
}

// Health returns a copy of the current health report.
func (b *Base) Health() Health {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h := b.health
	if h.Metrics != nil {
		m := make(map[string]float64, len(h.Metrics))
		for k, v := range h.Metrics {
			m[k] = v
		}
		h.Metrics = m
	}
	return h
}

// Cleanup unsubscribes from the bus and moves health to stopped.
// Idempotent; stopped is terminal.
func (b *Base) Cleanup(ctx context.Context) error {
	b.mu.Lock()
	if b.health.Status.IsTerminal() {
		b.mu.Unlock()
		return nil
	}
	from := b.health.Status
	b.health = Health{Status: StatusStopped, LastCheck: time.Now()}
	sub := b.sub
	b.sub = nil
	b.exec = nil
	var logger logging.Logger = logging.Nop{}
	if b.actx != nil {
		logger = b.actx.Logger
	}
	b.mu.Unlock()

	// Unsubscribe outside the lock: it waits for the in-flight handler,
	// which may be reading agent state.
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			return err
		}
	}

	logging.Lifecycle(logger, b.cfg.ID, string(from), string(StatusStopped))
	return nil
}
