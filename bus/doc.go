// Package bus provides the in-process message bus that agents use for all
// coordination: targeted sends, broadcasts, and correlated request/response
// exchanges. The bus is a single-process primitive; cross-process delivery
// and durable persistence are out of scope.
//
// # Delivery contract
//
// Send fans a message out to every subscription whose pattern matches the
// target, independently. Delivery is at-most-once per subscription, and
// ordering is guaranteed only per subscription: messages enqueued to the
// same subscription are handled in send order, with no ordering promise
// across different subscriptions.
//
// Routing errors and handler errors are deliberately asymmetric:
//
//   - Routing errors (NO_HANDLERS, MESSAGE_TOO_LARGE, QUEUE_FULL) fail the
//     calling Send.
//   - Handler errors are isolated per subscription: they are logged and
//     counted in PerformanceMetrics().HandlerErrors, and never fail the
//     Send. A nil return from Send means "delivery attempted to every
//     matching subscriber", not "processed successfully by all".
//
// # Statistics semantics
//
// Stats().Sent counts accepted sends. Stats().Received counts handler
// invocations that completed without error, so a send delivered to two
// handlers of which one fails reports Sent=1, Received=1, Failed=0.
// Stats().Failed counts routing-level failures only; handler errors never
// increment it. This is locked down by regression tests.
//
// # Backpressure
//
// The bus caps outstanding deliveries at Config.MaxQueueSize. When the cap
// is reached, the oldest queued delivery with a priority strictly lower
// than the incoming message is evicted (dropped, logged, counted in
// Stats().Dropped); if no strictly-lower-priority delivery is queued, the
// incoming send is rejected with QUEUE_FULL. A critical delivery is
// therefore never evicted to make room for anything less than critical,
// and a flood of same-priority traffic rejects the newest senders rather
// than starving earlier ones. Eviction does not fail the send that
// originally enqueued the evicted delivery; that send already had its
// delivery attempt accepted.
//
// # Requests
//
// Request sends a request-type message with a fresh correlation id and
// waits for a response-type message carrying the same id. Responses are
// matched against the pending-request table before normal routing, so the
// requester does not need a subscription. A response arriving after the
// requester timed out is dropped silently: the timeout abandons the wait
// but cannot recall the request or interrupt the handler.
package bus
