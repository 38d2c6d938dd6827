// Package errors provides structured errors for the agent bus and runtime.
//
// Every failure surfaced by the bus or an agent carries an ErrorCode that
// identifies the failure type and an ErrorCategory that drives retry
// decisions. Callers can match on codes with Is:
//
//	resp, err := b.Request(ctx, "git.agent", payload, 0)
//	if errors.Is(err, errors.ErrCodeRequestTimeout) {
//	    // the wait was abandoned; the request may still be processed
//	}
//
// The split between routing errors (NO_HANDLERS, MESSAGE_TOO_LARGE,
// QUEUE_FULL) and handler errors (HANDLER_EXECUTION) mirrors the bus
// delivery contract: routing errors fail the calling send, handler errors
// never do.
package errors
