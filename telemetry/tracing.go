// Package telemetry provides OpenTelemetry tracing for bus and agent
// operations. Tracing is optional: without an initialized provider the
// global tracer is a no-op and adds no overhead worth measuring.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with bus-specific helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include payload sizes and correlation ids in spans
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given name.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// SetDebug enables or disables debug mode.
func (t *Tracer) SetDebug(debug bool) {
	t.debug = debug
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Send Spans ---

// SendSpanOptions contains attributes recorded on a send span.
type SendSpanOptions struct {
	MessageID   string
	Target      string
	MessageType string
	Priority    string
	PayloadSize int
	Matched     int // subscribers the message was delivered to
}

// StartSendSpan starts a span for a bus send or broadcast.
func (t *Tracer) StartSendSpan(ctx context.Context, target string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "bus.send", trace.WithSpanKind(trace.SpanKindProducer))
	span.SetAttributes(attribute.String("bus.target", target))
	return ctx, span
}

// EndSendSpan ends a send span with attributes.
func (t *Tracer) EndSendSpan(span trace.Span, opts SendSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("bus.message_type", opts.MessageType),
		attribute.String("bus.priority", opts.Priority),
		attribute.Int("bus.matched", opts.Matched),
	}
	if t.debug {
		attrs = append(attrs,
			attribute.String("bus.message_id", opts.MessageID),
			attribute.Int("bus.payload_size", opts.PayloadSize),
		)
	}
	span.SetAttributes(attrs...)
	endSpan(span, err)
}

// --- Request Spans ---

// StartRequestSpan starts a span for a request/response exchange.
func (t *Tracer) StartRequestSpan(ctx context.Context, target string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "bus.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("bus.target", target))
	return ctx, span
}

// EndRequestSpan ends a request span.
func (t *Tracer) EndRequestSpan(span trace.Span, correlationID string, err error) {
	if t.debug && correlationID != "" {
		span.SetAttributes(attribute.String("bus.correlation_id", correlationID))
	}
	endSpan(span, err)
}

// --- Delegation Spans ---

// StartDelegateSpan starts a span for an agent delegation.
func (t *Tracer) StartDelegateSpan(ctx context.Context, agentID, target, task string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "agent.delegate", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("agent.delegate_target", target),
		attribute.String("agent.task", task),
	)
	return ctx, span
}

// EndDelegateSpan ends a delegation span.
func (t *Tracer) EndDelegateSpan(span trace.Span, err error) {
	endSpan(span, err)
}

// endSpan records the outcome and ends the span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// --- Context Propagation ---

// InjectContext injects trace context into a carrier.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractContext extracts trace context from a carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// MapCarrier is a simple map-based TextMapCarrier for context propagation.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string {
	return c[key]
}

func (c MapCarrier) Set(key, value string) {
	c[key] = value
}

func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
