package telemetry

import (
	"context"
	"testing"
)

func TestGetTracerDefaultsToNoop(t *testing.T) {
	SetGlobalTracer(nil)

	tr := GetTracer()
	if tr == nil {
		t.Fatal("GetTracer returned nil")
	}

	// Spans from the no-op tracer must be safe to use and end.
	ctx, span := tr.StartSendSpan(context.Background(), "git.agent")
	if ctx == nil {
		t.Fatal("context is nil")
	}
	tr.EndSendSpan(span, SendSpanOptions{Target: "git.agent", Matched: 2}, nil)

	_, span = tr.StartRequestSpan(context.Background(), "planner")
	tr.EndRequestSpan(span, "corr-1", context.DeadlineExceeded)

	_, span = tr.StartDelegateSpan(context.Background(), "orchestrator", "git.agent", "push")
	tr.EndDelegateSpan(span, nil)
}

func TestSetGlobalTracer(t *testing.T) {
	custom := NewTracer("test", true)
	SetGlobalTracer(custom)
	defer SetGlobalTracer(nil)

	if GetTracer() != custom {
		t.Error("GetTracer should return the tracer set via SetGlobalTracer")
	}
	if !GetTracer().Debug() {
		t.Error("debug flag not preserved")
	}
}

func TestMapCarrier(t *testing.T) {
	c := MapCarrier{}
	c.Set("traceparent", "00-abc-def-01")

	if c.Get("traceparent") != "00-abc-def-01" {
		t.Errorf("Get = %q", c.Get("traceparent"))
	}
	if len(c.Keys()) != 1 {
		t.Errorf("Keys = %v", c.Keys())
	}

	// Round-trip through the global propagator must not panic even when
	// no provider is configured.
	ctx := ExtractContext(context.Background(), c)
	InjectContext(ctx, MapCarrier{})
}
