package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(LevelWarn)

	l.Debug("debug msg")
	l.Info("info msg")
	l.Warn("warn msg")
	l.Error("error msg")

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("below-threshold messages should be filtered, got:\n%s", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("at-or-above-threshold messages missing, got:\n%s", out)
	}
}

func TestComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.WithComponent("bus").Info("started")

	if !strings.Contains(buf.String(), "[bus]") {
		t.Errorf("expected component prefix, got: %s", buf.String())
	}
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.Info("send", map[string]interface{}{"target": "git.agent"})

	if !strings.Contains(buf.String(), "target=git.agent") {
		t.Errorf("expected key=value field, got: %s", buf.String())
	}
}

func TestHandlerFailure(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	HandlerFailure(l, "test.*", "msg-1", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"handler_failure", "pattern=test.*", "message_id=msg-1", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in: %s", want, out)
		}
	}
}

func TestDelegationDeniedIsWarning(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	Delegation(l, "orchestrator", "git.agent", "push", false, "target not in allow-list")

	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "delegation_denied") {
		t.Errorf("denied delegation should log at WARN, got: %s", out)
	}
}

func TestNopDiscards(t *testing.T) {
	// Just exercise the no-op paths; must not panic.
	var l Logger = Nop{}
	l.Debug("a")
	l.Info("b", map[string]interface{}{"k": "v"})
	l.Warn("c")
	l.Error("d", nil)
}
