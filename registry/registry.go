package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/vinayprograms/agentbus/agent"
	"github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
)

// Factory builds a concrete, uninitialized agent from its config.
type Factory func(cfg agent.Config) (agent.Agent, error)

// errClosed is returned by every operation on a closed registry.
func errClosed() *errors.Error {
	return errors.FromCode(errors.ErrCodeConflict, errors.WithMetadata("registry", "closed"))
}

// EventType represents the type of registry event.
type EventType string

const (
	EventRegistered      EventType = "registered"
	EventUnregistered    EventType = "unregistered"
	EventInstanceCreated EventType = "instance_created"
	EventInstanceRemoved EventType = "instance_removed"
)

// Event represents a change in the registry.
type Event struct {
	// Type indicates what happened.
	Type EventType

	// AgentID is the affected agent's id.
	AgentID string

	// Kind is the agent's implementation kind.
	Kind string
}

// Registry manages agent configs, factories, and live instances.
type Registry struct {
	mu        sync.RWMutex
	configs   map[string]agent.Config
	factories map[string]Factory
	instances map[string]agent.Agent
	watchers  []chan Event
	closed    bool

	logger logging.Logger
}

// New creates an empty registry. A nil logger discards events.
func New(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Registry{
		configs:   make(map[string]agent.Config),
		factories: make(map[string]Factory),
		instances: make(map[string]agent.Agent),
		logger:    logger,
	}
}

// RegisterKind binds an implementation kind to its factory. Registering
// a kind twice replaces the factory.
func (r *Registry) RegisterKind(kind string, f Factory) error {
	if kind == "" {
		return errors.InvalidInput("kind is empty")
	}
	if f == nil {
		return errors.InvalidInput("factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	r.factories[kind] = f
	return nil
}

// Register adds or updates a declarative agent config. It has no effect
// on a live instance created from an earlier version of the config.
func (r *Registry) Register(cfg agent.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	r.configs[cfg.ID] = cfg
	r.notifyWatchers(Event{Type: EventRegistered, AgentID: cfg.ID, Kind: cfg.Kind})
	return nil
}

// Unregister removes a config. A live instance under the same id is
// drained via Cleanup first.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	cfg, ok := r.configs[id]
	if !ok {
		r.mu.Unlock()
		return errors.AgentNotFound(id)
	}
	inst := r.instances[id]
	delete(r.instances, id)
	delete(r.configs, id)
	r.mu.Unlock()

	if inst != nil {
		if err := inst.Cleanup(ctx); err != nil {
			return errors.Wrap(err, "drain instance", errors.WithAgentID(id))
		}
		r.emit(Event{Type: EventInstanceRemoved, AgentID: id, Kind: cfg.Kind})
	}
	r.emit(Event{Type: EventUnregistered, AgentID: id, Kind: cfg.Kind})
	return nil
}

// CreateInstance builds, initializes, and stores an agent from its
// registered config. The registry stamps the config's id, permissions,
// and environment into the provided context before Initialize.
func (r *Registry) CreateInstance(ctx context.Context, id string, actx *agent.Context) (agent.Agent, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errClosed()
	}
	cfg, ok := r.configs[id]
	if !ok {
		r.mu.Unlock()
		return nil, errors.AgentNotFound(id)
	}
	if _, live := r.instances[id]; live {
		r.mu.Unlock()
		return nil, errors.FromCode(errors.ErrCodeConflict, errors.WithAgentID(id))
	}
	factory, ok := r.factories[cfg.Kind]
	if !ok {
		r.mu.Unlock()
		return nil, errors.FromCode(errors.ErrCodeUnknownKind,
			errors.WithAgentID(id), errors.WithMetadata("kind", cfg.Kind))
	}
	r.mu.Unlock()

	inst, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build agent", errors.WithAgentID(id))
	}

	actx.AgentID = cfg.ID
	actx.Permissions = cfg.Permissions
	if err := inst.Initialize(ctx, actx); err != nil {
		return nil, errors.Wrap(err, "initialize agent", errors.WithAgentID(id))
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		inst.Cleanup(ctx)
		return nil, errClosed()
	}
	if _, live := r.instances[id]; live {
		// Lost the race to a concurrent CreateInstance.
		r.mu.Unlock()
		inst.Cleanup(ctx)
		return nil, errors.FromCode(errors.ErrCodeConflict, errors.WithAgentID(id))
	}
	r.instances[id] = inst
	r.notifyWatchers(Event{Type: EventInstanceCreated, AgentID: id, Kind: cfg.Kind})
	r.mu.Unlock()

	return inst, nil
}

// Instance returns the live instance for an id, if any.
func (r *Registry) Instance(id string) (agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Config returns the registered config for an id.
func (r *Registry) Config(id string) (agent.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return agent.Config{}, errors.AgentNotFound(id)
	}
	return cfg, nil
}

// Configs returns all registered configs sorted by id.
func (r *Registry) Configs() []agent.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShutdownAll drains every live instance concurrently and clears the
// instance table. Used for graceful host shutdown. Configs stay
// registered.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]agent.Agent)
	r.mu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(instances))
	for id, inst := range instances {
		wg.Add(1)
		go func(id string, inst agent.Agent) {
			defer wg.Done()
			if err := inst.Cleanup(ctx); err != nil {
				r.logger.Error("shutdown_failure", map[string]interface{}{
					"agent": id,
					"error": err.Error(),
				})
				errCh <- errors.Wrap(err, "cleanup", errors.WithAgentID(id))
				return
			}
			r.emit(Event{Type: EventInstanceRemoved, AgentID: id, Kind: ""})
		}(id, inst)
	}
	wg.Wait()
	close(errCh)

	return <-errCh // first failure, nil when the channel is empty
}

// Watch returns a channel of registry events. The channel is closed when
// the registry is closed; slow watchers miss events rather than block
// the registry.
func (r *Registry) Watch() (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errClosed()
	}
	ch := make(chan Event, 64)
	r.watchers = append(r.watchers, ch)
	return ch, nil
}

// Close drains all instances and closes every watcher channel.
func (r *Registry) Close(ctx context.Context) error {
	err := r.ShutdownAll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, ch := range r.watchers {
		close(ch)
	}
	r.watchers = nil
	return err
}

// emit sends an event to all watchers, taking the lock.
func (r *Registry) emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifyWatchers(event)
}

// notifyWatchers sends an event to all watchers. Must be called with
// the lock held.
func (r *Registry) notifyWatchers(event Event) {
	for _, ch := range r.watchers {
		select {
		case ch <- event:
		default:
			// Channel full, skip.
		}
	}
}
