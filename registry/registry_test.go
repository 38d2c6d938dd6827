package registry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vinayprograms/agentbus/agent"
	"github.com/vinayprograms/agentbus/bus"
	"github.com/vinayprograms/agentbus/errors"
)

// echoAgent is a minimal concrete agent for registry tests.
type echoAgent struct {
	agent.Base
}

func newEchoAgent(cfg agent.Config) (agent.Agent, error) {
	return &echoAgent{Base: agent.NewBase(cfg)}, nil
}

func (a *echoAgent) Initialize(ctx context.Context, actx *agent.Context) error {
	return a.Base.Initialize(ctx, actx, a.Execute)
}

func (a *echoAgent) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return input, nil
}

func newTestRegistry(t *testing.T) (*Registry, *bus.Bus) {
	t.Helper()
	b := bus.New(bus.DefaultConfig())
	t.Cleanup(func() { b.Destroy() })
	r := New(nil)
	if err := r.RegisterKind("echo", newEchoAgent); err != nil {
		t.Fatal(err)
	}
	return r, b
}

func TestCreateInstance(t *testing.T) {
	r, b := newTestRegistry(t)

	cfg := agent.Config{ID: "echo.agent", Kind: "echo"}
	if err := r.Register(cfg); err != nil {
		t.Fatal(err)
	}

	inst, err := r.CreateInstance(context.Background(), "echo.agent", &agent.Context{Bus: b})
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID() != "echo.agent" {
		t.Errorf("instance id = %q", inst.ID())
	}
	if h := inst.Health(); h.Status != agent.StatusHealthy {
		t.Errorf("instance health = %s, want healthy", h.Status)
	}

	// The instance is live on the bus.
	resp, err := b.Request(context.Background(), "host", "echo.agent", json.RawMessage(`{"n":1}`), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Payload) != `{"n":1}` {
		t.Errorf("payload = %s", resp.Payload)
	}

	if got, ok := r.Instance("echo.agent"); !ok || got != inst {
		t.Error("instance not stored under its id")
	}
}

func TestCreateInstanceUnknownID(t *testing.T) {
	r, b := newTestRegistry(t)
	_, err := r.CreateInstance(context.Background(), "ghost.agent", &agent.Context{Bus: b})
	if !errors.Is(err, errors.ErrCodeAgentNotFound) {
		t.Fatalf("got %v, want AGENT_NOT_FOUND", err)
	}
}

func TestCreateInstanceUnknownKind(t *testing.T) {
	r, b := newTestRegistry(t)
	if err := r.Register(agent.Config{ID: "odd.agent", Kind: "teleporter"}); err != nil {
		t.Fatal(err)
	}
	_, err := r.CreateInstance(context.Background(), "odd.agent", &agent.Context{Bus: b})
	if !errors.Is(err, errors.ErrCodeUnknownKind) {
		t.Fatalf("got %v, want UNKNOWN_KIND", err)
	}
}

func TestCreateInstanceOnlyOnce(t *testing.T) {
	r, b := newTestRegistry(t)
	if err := r.Register(agent.Config{ID: "solo.agent", Kind: "echo"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateInstance(context.Background(), "solo.agent", &agent.Context{Bus: b}); err != nil {
		t.Fatal(err)
	}
	_, err := r.CreateInstance(context.Background(), "solo.agent", &agent.Context{Bus: b})
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Fatalf("got %v, want CONFLICT", err)
	}
}

func TestRegisterInvalidConfig(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Register(agent.Config{Kind: "echo"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing id: got %v", err)
	}
	if err := r.Register(agent.Config{ID: "x"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing kind: got %v", err)
	}
}

func TestUnregisterDrainsInstance(t *testing.T) {
	r, b := newTestRegistry(t)
	if err := r.Register(agent.Config{ID: "fleeting.agent", Kind: "echo"}); err != nil {
		t.Fatal(err)
	}
	inst, err := r.CreateInstance(context.Background(), "fleeting.agent", &agent.Context{Bus: b})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Unregister(context.Background(), "fleeting.agent"); err != nil {
		t.Fatal(err)
	}

	if h := inst.Health(); h.Status != agent.StatusStopped {
		t.Errorf("drained instance health = %s, want stopped", h.Status)
	}
	msg := bus.NewMessage("host", "fleeting.agent", bus.TypeNotification, json.RawMessage(`{}`))
	if err := b.Send(context.Background(), msg); !errors.Is(err, errors.ErrCodeNoHandlers) {
		t.Errorf("send after unregister: got %v, want NO_HANDLERS", err)
	}
	if _, err := r.Config("fleeting.agent"); !errors.Is(err, errors.ErrCodeAgentNotFound) {
		t.Error("config must be gone after unregister")
	}
}

func TestUnregisterUnknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Unregister(context.Background(), "nobody"); !errors.Is(err, errors.ErrCodeAgentNotFound) {
		t.Errorf("got %v, want AGENT_NOT_FOUND", err)
	}
}

func TestShutdownAll(t *testing.T) {
	r, b := newTestRegistry(t)

	ids := []string{"a.agent", "b.agent", "c.agent"}
	var instances []agent.Agent
	for _, id := range ids {
		if err := r.Register(agent.Config{ID: id, Kind: "echo"}); err != nil {
			t.Fatal(err)
		}
		inst, err := r.CreateInstance(context.Background(), id, &agent.Context{Bus: b})
		if err != nil {
			t.Fatal(err)
		}
		instances = append(instances, inst)
	}

	if err := r.ShutdownAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, inst := range instances {
		if h := inst.Health(); h.Status != agent.StatusStopped {
			t.Errorf("%s health = %s, want stopped", inst.ID(), h.Status)
		}
	}
	for _, id := range ids {
		if _, ok := r.Instance(id); ok {
			t.Errorf("%s still in instance table", id)
		}
	}

	// Configs survive shutdown; instances can be recreated.
	if len(r.Configs()) != len(ids) {
		t.Errorf("configs = %d, want %d", len(r.Configs()), len(ids))
	}
	if _, err := r.CreateInstance(context.Background(), "a.agent", &agent.Context{Bus: b}); err != nil {
		t.Errorf("recreate after shutdown: %v", err)
	}
}

func TestWatch(t *testing.T) {
	r, b := newTestRegistry(t)

	events, err := r.Watch()
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Register(agent.Config{ID: "watched.agent", Kind: "echo"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateInstance(context.Background(), "watched.agent", &agent.Context{Bus: b}); err != nil {
		t.Fatal(err)
	}
	if err := r.Unregister(context.Background(), "watched.agent"); err != nil {
		t.Fatal(err)
	}

	want := []EventType{EventRegistered, EventInstanceCreated, EventInstanceRemoved, EventUnregistered}
	for _, wt := range want {
		select {
		case ev := <-events:
			if ev.Type != wt {
				t.Errorf("event = %s, want %s", ev.Type, wt)
			}
			if ev.AgentID != "watched.agent" {
				t.Errorf("event agent = %q", ev.AgentID)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s event", wt)
		}
	}

	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-events; ok {
		t.Error("watch channel must close with the registry")
	}
}

func TestClosedRegistryRejectsOperations(t *testing.T) {
	r, b := newTestRegistry(t)
	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := r.Register(agent.Config{ID: "x", Kind: "echo"}); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("register on closed: got %v", err)
	}
	if _, err := r.CreateInstance(context.Background(), "x", &agent.Context{Bus: b}); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("create on closed: got %v", err)
	}
	if _, err := r.Watch(); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("watch on closed: got %v", err)
	}
}
