package bus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentbus/errors"
	"github.com/vinayprograms/agentbus/logging"
	"github.com/vinayprograms/agentbus/telemetry"
)

// Config holds bus configuration. Zero values take the documented
// conservative defaults.
type Config struct {
	// MaxPayloadSize caps the serialized payload of a single message.
	// Default: 1 MiB.
	MaxPayloadSize int

	// MaxQueueSize caps total outstanding deliveries across all
	// subscriptions. Default: 1024.
	MaxQueueSize int

	// RequestTimeout is the default deadline for Request when the caller
	// passes zero. Default: 30 seconds.
	RequestTimeout time.Duration

	// Batching controls optional send batching.
	Batching BatchConfig

	// Logger receives handler failures, evictions, and lifecycle events.
	// Default: logging.Nop.
	Logger logging.Logger

	// Tracer records send/request spans. Default: the global telemetry
	// tracer (no-op unless a provider is initialized).
	Tracer *telemetry.Tracer
}

// DefaultConfig returns configuration with the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxPayloadSize: 1 << 20,
		MaxQueueSize:   1024,
		RequestTimeout: 30 * time.Second,
		Batching:       DefaultBatchConfig(),
	}
}

// Bus routes messages between subscriptions. See the package documentation
// for the delivery contract.
type Bus struct {
	cfg    Config
	logger logging.Logger
	tracer *telemetry.Tracer

	// ctx is the handler context, canceled by Destroy. Handlers outlive
	// the sender's context by design.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	subs []*Subscription

	// qmu serializes queue admission and eviction.
	qmu sync.Mutex

	reqMu    sync.Mutex
	requests map[string]chan *Message

	batch *batcher

	seq     atomic.Uint64
	stats   counters
	started time.Time
	closed  atomic.Bool
}

// Subscription is one handler registered under one pattern. Deliveries to
// a subscription are processed in order by a dedicated goroutine.
type Subscription struct {
	bus     *Bus
	pattern *pattern
	handler Handler

	mu     sync.Mutex
	queue  []*delivery
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// delivery is one message queued for one subscription.
type delivery struct {
	msg      *Message
	seq      uint64
	enqueued time.Time
	wg       *sync.WaitGroup
}

// New creates a message bus. The host owns the bus and injects it into
// each agent context; there is no ambient global instance.
func New(cfg Config) *Bus {
	def := DefaultConfig()
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = def.MaxPayloadSize
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.GetTracer()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		cfg:      cfg,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
		ctx:      ctx,
		cancel:   cancel,
		requests: make(map[string]chan *Message),
		started:  time.Now(),
	}

	if cfg.Batching.Enabled {
		b.batch = newBatcher(b, cfg.Batching)
	}

	return b
}

// Subscribe registers a handler under a pattern. Multiple handlers may
// share a pattern; each gets its own Subscription and delivery order.
func (b *Bus) Subscribe(pat string, h Handler) (*Subscription, error) {
	if b.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeBusClosed)
	}
	if h == nil {
		return nil, errors.InvalidInput("handler is nil")
	}

	p, err := compilePattern(pat)
	if err != nil {
		return nil, err
	}

	s := &Subscription{
		bus:     b,
		pattern: p,
		handler: h,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	go s.run()
	return s, nil
}

// Pattern returns the subscription's raw pattern.
func (s *Subscription) Pattern() string {
	return s.pattern.String()
}

// Unsubscribe removes exactly this subscription. Sibling handlers on the
// same pattern are untouched. Queued deliveries are dropped.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.removeSub(s)
	close(s.stop)
	<-s.done
	return nil
}

// removeSub takes a subscription out of the routing table.
func (b *Bus) removeSub(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// run processes a subscription's queue in FIFO order.
func (s *Subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			s.drain()
			return
		case <-s.wake:
			for {
				d := s.pop()
				if d == nil {
					break
				}
				s.bus.invoke(s, d)
			}
		}
	}
}

// pop removes the head of the queue, nil when empty.
func (s *Subscription) pop() *delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d
}

// enqueue appends a delivery. Returns false if the subscription closed.
func (s *Subscription) enqueue(d *delivery) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, d)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// drain discards queued deliveries after unsubscribe or teardown.
func (s *Subscription) drain() {
	for {
		d := s.pop()
		if d == nil {
			return
		}
		s.bus.stats.queued.Add(-1)
		s.bus.stats.dropped.Add(1)
		d.wg.Done()
	}
}

// Send delivers a message to every subscription matching its target and
// resolves once each matching handler has been invoked. Handler errors do
// not fail the send; see the package documentation.
func (b *Bus) Send(ctx context.Context, msg *Message) error {
	ctx, span := b.tracer.StartSendSpan(ctx, msg.To)
	matched, err := b.send(ctx, msg, b.batch != nil)
	b.tracer.EndSendSpan(span, telemetry.SendSpanOptions{
		MessageID:   msg.ID,
		Target:      msg.To,
		MessageType: string(msg.Type),
		Priority:    msg.Priority.String(),
		PayloadSize: len(msg.Payload),
		Matched:     matched,
	}, err)
	return err
}

// Broadcast stamps the message as a broadcast and delivers it to every
// active subscription exactly once. Zero subscribers is not an error:
// broadcasts are excluded from per-target delivery bookkeeping.
func (b *Bus) Broadcast(ctx context.Context, msg *Message) error {
	msg.To = BroadcastTarget
	if msg.Type == "" {
		msg.Type = TypeBroadcast
	}
	ctx, span := b.tracer.StartSendSpan(ctx, BroadcastTarget)
	matched, err := b.send(ctx, msg, false)
	b.tracer.EndSendSpan(span, telemetry.SendSpanOptions{
		MessageID:   msg.ID,
		Target:      BroadcastTarget,
		MessageType: string(msg.Type),
		Priority:    msg.Priority.String(),
		PayloadSize: len(msg.Payload),
		Matched:     matched,
	}, err)
	return err
}

// send validates, routes, and (unless batched) delivers a message.
// Returns the number of subscriptions the message was dispatched to.
func (b *Bus) send(ctx context.Context, msg *Message, viaBatch bool) (int, error) {
	if b.closed.Load() {
		b.stats.failed.Add(1)
		return 0, errors.FromCode(errors.ErrCodeBusClosed)
	}

	if err := msg.validate(b.cfg.MaxPayloadSize); err != nil {
		b.stats.failed.Add(1)
		return 0, err
	}

	// Correlated responses complete the pending request directly and skip
	// subscription routing. Late responses are dropped: the timeout only
	// abandoned the wait.
	if msg.Type == TypeResponse && msg.CorrelationID != "" {
		if !b.completeRequest(msg) {
			b.logger.Debug("late_response_dropped", map[string]interface{}{
				"correlation_id": msg.CorrelationID,
				"from":           msg.From,
			})
		}
		b.stats.sent.Add(1)
		return 0, nil
	}

	if msg.IsBroadcast() {
		msg.To = BroadcastTarget
		subs := b.allSubs()
		if err := b.dispatch(ctx, msg, subs, true); err != nil {
			return 0, err
		}
		return len(subs), nil
	}

	subs := b.matching(msg.To)
	if len(subs) == 0 {
		b.stats.failed.Add(1)
		return 0, errors.NoHandlers(msg.To)
	}

	if viaBatch {
		b.batch.enqueue(msg)
		b.stats.sent.Add(1)
		return len(subs), nil
	}

	if err := b.dispatch(ctx, msg, subs, true); err != nil {
		return 0, err
	}
	return len(subs), nil
}

// matching snapshots the subscriptions covering a target.
func (b *Bus) matching(target string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Subscription
	for _, s := range b.subs {
		if s.pattern.matches(target) {
			out = append(out, s)
		}
	}
	return out
}

// allSubs snapshots every active subscription.
func (b *Bus) allSubs() []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Subscription, len(b.subs))
	copy(out, b.subs)
	return out
}

// dispatch admits, enqueues, and optionally waits for one message across
// a set of subscriptions. Admission is atomic per send: either slots are
// found for every matching subscription or the send is rejected.
func (b *Bus) dispatch(ctx context.Context, msg *Message, subs []*Subscription, wait bool) error {
	if len(subs) == 0 {
		b.stats.sent.Add(1)
		return nil
	}

	if err := b.admit(msg, len(subs)); err != nil {
		b.stats.failed.Add(1)
		return err
	}

	wg := &sync.WaitGroup{}
	wg.Add(len(subs))
	now := time.Now()
	for _, s := range subs {
		d := &delivery{
			msg:      msg,
			seq:      b.seq.Add(1),
			enqueued: now,
			wg:       wg,
		}
		if !s.enqueue(d) {
			// Subscription closed between matching and enqueue.
			b.stats.queued.Add(-1)
			wg.Done()
		}
	}
	b.stats.sent.Add(1)

	if !wait {
		return nil
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Deliveries continue in the background; only the wait ends.
		return errors.Wrap(ctx.Err(), "send interrupted")
	}
}

// admit reserves n delivery slots, evicting strictly-lower-priority
// queued deliveries as needed. See the package documentation for the
// eviction policy.
func (b *Bus) admit(msg *Message, n int) error {
	b.qmu.Lock()
	defer b.qmu.Unlock()

	for int(b.stats.queued.Load())+n > b.cfg.MaxQueueSize {
		if !b.evictOne(msg.Priority) {
			return errors.QueueFull(int(b.stats.queued.Load()))
		}
	}
	b.stats.queued.Add(int64(n))
	return nil
}

// evictOne drops the oldest queued delivery with a priority strictly
// below limit. Returns false when no such delivery is queued.
func (b *Bus) evictOne(limit Priority) bool {
	var (
		victimSub *Subscription
		victimIdx int
		victim    *delivery
	)

	for _, s := range b.allSubs() {
		s.mu.Lock()
		for i, d := range s.queue {
			if d.msg.Priority >= limit {
				continue
			}
			if victim == nil ||
				d.msg.Priority < victim.msg.Priority ||
				(d.msg.Priority == victim.msg.Priority && d.seq < victim.seq) {
				victimSub, victimIdx, victim = s, i, d
			}
			// Entries within one queue are in seq order; the first
			// candidate at a given priority is the oldest there.
		}
		s.mu.Unlock()
	}

	if victim == nil {
		return false
	}

	victimSub.mu.Lock()
	// Re-locate: the queue may have advanced since the scan.
	removed := false
	if victimIdx < len(victimSub.queue) && victimSub.queue[victimIdx] == victim {
		victimSub.queue = append(victimSub.queue[:victimIdx], victimSub.queue[victimIdx+1:]...)
		removed = true
	} else {
		for i, d := range victimSub.queue {
			if d == victim {
				victimSub.queue = append(victimSub.queue[:i], victimSub.queue[i+1:]...)
				removed = true
				break
			}
		}
	}
	victimSub.mu.Unlock()

	if !removed {
		// The dispatcher got to it first; treat the slot as freed by
		// normal completion and retry.
		return true
	}

	b.stats.queued.Add(-1)
	b.stats.dropped.Add(1)
	victim.wg.Done()
	logging.Eviction(b.logger, victim.msg.ID, victim.msg.Priority.String())
	return true
}

// invoke runs one handler for one delivery. Handler errors are isolated:
// logged and counted, never propagated to the sender.
func (b *Bus) invoke(s *Subscription, d *delivery) {
	b.stats.queued.Add(-1)
	b.stats.inflight.Add(1)
	b.stats.recordLatency(time.Since(d.enqueued))
	defer func() {
		b.stats.inflight.Add(-1)
		d.wg.Done()
	}()

	res, err := b.safeHandle(s, d.msg)
	if err != nil {
		b.stats.handlerErrors.Add(1)
		logging.HandlerFailure(b.logger, s.pattern.String(), d.msg.ID, err)
		return
	}
	b.stats.received.Add(1)

	if res.IsReply() && d.msg.CorrelationID != "" {
		resp := NewMessage(d.msg.To, d.msg.From, TypeResponse, res.Payload())
		resp.CorrelationID = d.msg.CorrelationID
		resp.Priority = d.msg.Priority
		if !b.completeRequest(resp) {
			b.logger.Debug("late_response_dropped", map[string]interface{}{
				"correlation_id": resp.CorrelationID,
				"from":           resp.From,
			})
		}
	}
}

// safeHandle invokes a handler, converting panics into handler errors so
// one misbehaving subscriber cannot take down its dispatcher.
func (b *Bus) safeHandle(s *Subscription, msg *Message) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = None()
			err = errors.Newf(errors.ErrCodeHandlerExecution, "handler panic: %v", r)
		}
	}()
	return s.handler(b.ctx, msg)
}

// Request sends a request-type message and waits for the correlated
// response. A zero timeout uses Config.RequestTimeout. Timing out
// abandons the wait only; the request is not recalled and an in-flight
// handler is not interrupted.
func (b *Bus) Request(ctx context.Context, from, target string, payload json.RawMessage, timeout time.Duration) (*Message, error) {
	if b.closed.Load() {
		return nil, errors.FromCode(errors.ErrCodeBusClosed)
	}
	if timeout <= 0 {
		timeout = b.cfg.RequestTimeout
	}

	ctx, span := b.tracer.StartRequestSpan(ctx, target)

	msg := NewMessage(from, target, TypeRequest, payload)
	msg.RequiresResponse = true
	msg.CorrelationID = uuid.NewString()

	ch := make(chan *Message, 1)
	b.reqMu.Lock()
	b.requests[msg.CorrelationID] = ch
	b.reqMu.Unlock()
	b.stats.pendingRequests.Add(1)
	defer b.forgetRequest(msg.CorrelationID)

	// Requests bypass batching so response latency stays bounded.
	if _, err := b.send(ctx, msg, false); err != nil {
		b.tracer.EndRequestSpan(span, msg.CorrelationID, err)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp == nil {
			err := errors.FromCode(errors.ErrCodeBusClosed)
			b.tracer.EndRequestSpan(span, msg.CorrelationID, err)
			return nil, err
		}
		b.tracer.EndRequestSpan(span, msg.CorrelationID, nil)
		return resp, nil
	case <-timer.C:
		err := errors.RequestTimeout(target)
		b.tracer.EndRequestSpan(span, msg.CorrelationID, err)
		return nil, err
	case <-ctx.Done():
		err := errors.Wrap(ctx.Err(), "request abandoned")
		b.tracer.EndRequestSpan(span, msg.CorrelationID, err)
		return nil, err
	}
}

// completeRequest hands a response to its waiting requester. Returns
// false when no request is pending under the correlation id.
func (b *Bus) completeRequest(resp *Message) bool {
	b.reqMu.Lock()
	ch, ok := b.requests[resp.CorrelationID]
	if ok {
		delete(b.requests, resp.CorrelationID)
	}
	b.reqMu.Unlock()

	if !ok {
		return false
	}
	b.stats.pendingRequests.Add(-1)
	ch <- resp // buffered, single writer after delete
	return true
}

// forgetRequest drops a pending request registration if still present.
func (b *Bus) forgetRequest(correlationID string) {
	b.reqMu.Lock()
	_, ok := b.requests[correlationID]
	if ok {
		delete(b.requests, correlationID)
	}
	b.reqMu.Unlock()
	if ok {
		b.stats.pendingRequests.Add(-1)
	}
}

// Flush forces delivery of any batched sends. No-op when batching is
// disabled.
func (b *Bus) Flush() {
	if b.batch != nil {
		b.batch.flushNow()
	}
}

// Stats returns the bus delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Sent:     b.stats.sent.Load(),
		Received: b.stats.received.Load(),
		Failed:   b.stats.failed.Load(),
		Dropped:  b.stats.dropped.Load(),
		Pending:  uint64(max64(b.stats.queued.Load(), 0)),
	}
}

// PerformanceMetrics returns throughput and health metrics.
func (b *Bus) PerformanceMetrics() PerformanceMetrics {
	elapsed := time.Since(b.started).Seconds()
	sent := b.stats.sent.Load()
	failed := b.stats.failed.Load()

	var rate, errRate float64
	if elapsed > 0 {
		rate = float64(sent) / elapsed
	}
	if attempts := sent + failed; attempts > 0 {
		errRate = float64(failed) / float64(attempts)
	}

	return PerformanceMetrics{
		AverageLatency:  b.stats.averageLatency(),
		MessageRate:     rate,
		ErrorRate:       errRate,
		QueueDepth:      int(max64(b.stats.queued.Load(), 0)),
		PendingRequests: int(max64(b.stats.pendingRequests.Load(), 0)),
		HandlerErrors:   b.stats.handlerErrors.Load(),
	}
}

// Destroy tears the bus down: flushes batched sends, stops every
// subscription, fails pending requests with BUS_CLOSED, and resets all
// counters. The bus cannot be reused afterwards.
func (b *Bus) Destroy() error {
	if b.closed.Swap(true) {
		return nil
	}

	if b.batch != nil {
		b.batch.close()
	}

	// Fail waiters and cancel the handler context before stopping
	// subscriptions, so a handler blocked on the context can exit and
	// its dispatcher can observe the stop.
	b.reqMu.Lock()
	for id, ch := range b.requests {
		delete(b.requests, id)
		close(ch)
	}
	b.reqMu.Unlock()
	b.cancel()

	for _, s := range b.allSubs() {
		s.Unsubscribe()
	}

	b.stats.reset()

	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()

	return nil
}

// waitIdle blocks until no deliveries are queued or in flight, or the
// context ends. Used by Flush so callers observe handler effects.
func (b *Bus) waitIdle(ctx context.Context) {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for b.stats.queued.Load() > 0 || b.stats.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
