package bus

import (
	"sync/atomic"
	"time"
)

// Stats are the bus delivery counters. All counters are monotonic and
// reset only by Destroy. See the package documentation for the exact
// counting semantics of Received and Failed.
type Stats struct {
	// Sent counts accepted sends, broadcasts, and requests.
	Sent uint64

	// Received counts handler invocations that completed without error.
	Received uint64

	// Failed counts routing-level send failures only. Handler errors are
	// never included; see PerformanceMetrics.HandlerErrors.
	Failed uint64

	// Dropped counts deliveries evicted under queue pressure.
	Dropped uint64

	// Pending counts deliveries currently queued or in flight.
	Pending uint64
}

// PerformanceMetrics describe bus throughput and health.
type PerformanceMetrics struct {
	// AverageLatency is the mean time between enqueue and handler
	// invocation across all completed deliveries.
	AverageLatency time.Duration

	// MessageRate is accepted sends per second since the bus started.
	MessageRate float64

	// ErrorRate is routing failures as a fraction of all send attempts.
	ErrorRate float64

	// QueueDepth is the number of deliveries currently queued.
	QueueDepth int

	// PendingRequests is the number of requests awaiting a response.
	PendingRequests int

	// HandlerErrors counts handler invocations that returned an error.
	HandlerErrors uint64
}

// counters holds the bus's atomic statistics.
type counters struct {
	sent          atomic.Uint64
	received      atomic.Uint64
	failed        atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64

	queued          atomic.Int64 // deliveries waiting for a dispatcher
	inflight        atomic.Int64 // deliveries currently in a handler
	pendingRequests atomic.Int64

	latencyTotal atomic.Int64 // nanoseconds
	latencyCount atomic.Int64
}

// reset zeroes all counters.
func (c *counters) reset() {
	c.sent.Store(0)
	c.received.Store(0)
	c.failed.Store(0)
	c.dropped.Store(0)
	c.handlerErrors.Store(0)
	c.queued.Store(0)
	c.inflight.Store(0)
	c.pendingRequests.Store(0)
	c.latencyTotal.Store(0)
	c.latencyCount.Store(0)
}

// recordLatency adds one completed delivery's queue-to-invocation latency.
func (c *counters) recordLatency(d time.Duration) {
	c.latencyTotal.Add(int64(d))
	c.latencyCount.Add(1)
}

// averageLatency returns the mean recorded latency.
func (c *counters) averageLatency() time.Duration {
	count := c.latencyCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(c.latencyTotal.Load() / count)
}
