package bus

import (
	"context"
	"encoding/json"
)

// Handler processes a delivered message. The returned Result states
// explicitly whether the handler replies; a reply to a request-type
// message produces a correlated response envelope. Returning an error
// marks the invocation failed for this subscription only; it never
// affects delivery to other subscriptions or the outcome of the send.
type Handler func(ctx context.Context, msg *Message) (Result, error)

// Result is the discriminated outcome of handling a message: either no
// reply, or a reply payload for the correlated response.
type Result struct {
	reply    json.RawMessage
	hasReply bool
}

// None indicates the handler produced no reply.
func None() Result {
	return Result{}
}

// Reply indicates the handler replies with the given payload. The bus
// turns it into a response envelope correlated to the originating request;
// for messages without a correlation id the reply is discarded.
func Reply(payload json.RawMessage) Result {
	return Result{reply: payload, hasReply: true}
}

// IsReply reports whether the result carries a reply.
func (r Result) IsReply() bool {
	return r.hasReply
}

// Payload returns the reply payload, nil when IsReply is false.
func (r Result) Payload() json.RawMessage {
	return r.reply
}
