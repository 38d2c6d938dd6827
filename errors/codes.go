package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: request timeouts, a full delivery queue.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: oversized payloads, permission denials, unknown targets.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for bus and agent failure scenarios.
const (
	// Bus routing errors. These fail the calling send or request.
	ErrCodeNoHandlers      ErrorCode = "NO_HANDLERS"       // No subscriber matches the target
	ErrCodeMessageTooLarge ErrorCode = "MESSAGE_TOO_LARGE" // Payload exceeds the size cap
	ErrCodeQueueFull       ErrorCode = "QUEUE_FULL"        // Delivery queue at capacity, no evictable entry
	ErrCodeRequestTimeout  ErrorCode = "REQUEST_TIMEOUT"   // No correlated response within the deadline
	ErrCodeBusClosed       ErrorCode = "BUS_CLOSED"        // Bus has been destroyed

	// Handler errors. Isolated per subscriber, never surfaced to the sender.
	ErrCodeHandlerExecution ErrorCode = "HANDLER_EXECUTION" // A subscriber's handler returned an error

	// Agent runtime errors.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED" // Capability or allow-list gate failed
	ErrCodeAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"   // No config registered under the id
	ErrCodeUnknownKind      ErrorCode = "UNKNOWN_KIND"      // No factory registered for the config kind
	ErrCodeLifecycle        ErrorCode = "LIFECYCLE"         // Invalid health state transition

	// Generic errors.
	ErrCodeTimeout      ErrorCode = "TIMEOUT"       // Operation timed out
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"     // Resource does not exist
	ErrCodeConflict     ErrorCode = "CONFLICT"      // Conflicting operation or state
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed or invalid input
	ErrCodeCanceled     ErrorCode = "CANCELED"      // Operation was canceled
	ErrCodeInternal     ErrorCode = "INTERNAL"      // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeRequestTimeout, ErrCodeQueueFull, ErrCodeTimeout:
		return CategoryTransient

	case ErrCodeNoHandlers, ErrCodeMessageTooLarge, ErrCodeBusClosed,
		ErrCodeHandlerExecution, ErrCodePermissionDenied, ErrCodeAgentNotFound,
		ErrCodeUnknownKind, ErrCodeLifecycle, ErrCodeNotFound, ErrCodeConflict,
		ErrCodeInvalidInput, ErrCodeCanceled:
		return CategoryPermanent

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeNoHandlers:       "no handlers found for target",
	ErrCodeMessageTooLarge:  "message payload exceeds size limit",
	ErrCodeQueueFull:        "delivery queue full",
	ErrCodeRequestTimeout:   "request timed out",
	ErrCodeBusClosed:        "message bus closed",
	ErrCodeHandlerExecution: "handler execution failed",
	ErrCodePermissionDenied: "permission denied",
	ErrCodeAgentNotFound:    "agent not found",
	ErrCodeUnknownKind:      "unknown agent kind",
	ErrCodeLifecycle:        "invalid lifecycle transition",
	ErrCodeTimeout:          "operation timed out",
	ErrCodeNotFound:         "resource not found",
	ErrCodeConflict:         "conflicting operation",
	ErrCodeInvalidInput:     "invalid input provided",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeInternal:         "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
