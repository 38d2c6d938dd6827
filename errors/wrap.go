package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a structured Error, its code, category and identity
// fields are preserved.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var busErr *Error
	if errors.As(err, &busErr) {
		wrapped := &Error{
			code:      busErr.code,
			category:  busErr.category,
			message:   message,
			cause:     err,
			metadata:  busErr.Metadata(),
			retryable: busErr.retryable,
			agentID:   busErr.agentID,
			target:    busErr.target,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Map context errors onto their codes
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsBusError attempts to extract a structured error from an error chain.
// Returns nil if none is found.
func AsBusError(err error) BusError {
	var busErr *Error
	if errors.As(err, &busErr) {
		return busErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var busErr *Error
	if errors.As(err, &busErr) {
		return busErr.code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
// Unstructured errors are not considered retryable.
func IsRetryable(err error) bool {
	var busErr *Error
	if errors.As(err, &busErr) {
		return busErr.Retryable()
	}
	return false
}
