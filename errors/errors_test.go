package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNoHandlers, "no handlers for git.agent")

	if err.Code() != ErrCodeNoHandlers {
		t.Errorf("code = %v, want %v", err.Code(), ErrCodeNoHandlers)
	}
	if err.Category() != CategoryPermanent {
		t.Errorf("category = %v, want %v", err.Category(), CategoryPermanent)
	}
	if err.Retryable() {
		t.Error("NO_HANDLERS should not be retryable by default")
	}
	if err.Timestamp().IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestDefaultCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeRequestTimeout, CategoryTransient},
		{ErrCodeQueueFull, CategoryTransient},
		{ErrCodeNoHandlers, CategoryPermanent},
		{ErrCodeMessageTooLarge, CategoryPermanent},
		{ErrCodePermissionDenied, CategoryPermanent},
		{ErrCodeHandlerExecution, CategoryPermanent},
		{ErrCodeAgentNotFound, CategoryPermanent},
		{ErrCodeInternal, CategoryInternal},
		{ErrorCode("BOGUS"), CategoryInternal},
	}

	for _, tt := range tests {
		if got := tt.code.DefaultCategory(); got != tt.want {
			t.Errorf("%s: category = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestRetryableOverride(t *testing.T) {
	err := New(ErrCodeRequestTimeout, "timed out", WithRetryable(false))
	if err.Retryable() {
		t.Error("explicit WithRetryable(false) should win over category default")
	}
}

func TestErrorMessage(t *testing.T) {
	plain := New(ErrCodeInternal, "boom")
	if plain.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "boom")
	}

	wrapped := New(ErrCodeInternal, "outer", WithCause(fmt.Errorf("inner")))
	if wrapped.Error() != "outer: inner" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "outer: inner")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code ErrorCode
	}{
		{"NoHandlers", NoHandlers("git.agent"), ErrCodeNoHandlers},
		{"MessageTooLarge", MessageTooLarge(2048, 1024), ErrCodeMessageTooLarge},
		{"QueueFull", QueueFull(100), ErrCodeQueueFull},
		{"RequestTimeout", RequestTimeout("git.agent"), ErrCodeRequestTimeout},
		{"PermissionDenied", PermissionDenied("delegation not permitted"), ErrCodePermissionDenied},
		{"AgentNotFound", AgentNotFound("ghost"), ErrCodeAgentNotFound},
		{"InvalidInput", InvalidInput("empty from"), ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		if tt.err.Code() != tt.code {
			t.Errorf("%s: code = %v, want %v", tt.name, tt.err.Code(), tt.code)
		}
	}
}

func TestTargetIsRecorded(t *testing.T) {
	err := NoHandlers("research.agent")
	if err.Target() != "research.agent" {
		t.Errorf("target = %q, want %q", err.Target(), "research.agent")
	}

	err = RequestTimeout("planner")
	if err.Target() != "planner" {
		t.Errorf("target = %q, want %q", err.Target(), "planner")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := NoHandlers("git.agent", WithAgentID("orchestrator"))
	outer := Wrap(inner, "delegation failed")

	if outer.Code() != ErrCodeNoHandlers {
		t.Errorf("code = %v, want %v", outer.Code(), ErrCodeNoHandlers)
	}
	if outer.AgentID() != "orchestrator" {
		t.Errorf("agentID = %q, want %q", outer.AgentID(), "orchestrator")
	}
	if outer.Target() != "git.agent" {
		t.Errorf("target = %q, want %q", outer.Target(), "git.agent")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("wrapped error should match inner via errors.Is")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapWithCode(nil, ErrCodeInternal, "nothing") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestWrapContextErrors(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, "waiting for response")
	if err.Code() != ErrCodeTimeout {
		t.Errorf("code = %v, want %v", err.Code(), ErrCodeTimeout)
	}

	err = Wrap(context.Canceled, "waiting for response")
	if err.Code() != ErrCodeCanceled {
		t.Errorf("code = %v, want %v", err.Code(), ErrCodeCanceled)
	}
}

func TestIs(t *testing.T) {
	err := NoHandlers("git.agent")
	wrapped := fmt.Errorf("send failed: %w", err)

	if !Is(wrapped, ErrCodeNoHandlers) {
		t.Error("Is should find the code through the chain")
	}
	if Is(wrapped, ErrCodeRequestTimeout) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeNoHandlers) {
		t.Error("Is should not match unstructured errors")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(RequestTimeout("x")) {
		t.Error("request timeout should be retryable")
	}
	if IsRetryable(NoHandlers("x")) {
		t.Error("no handlers should not be retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("unstructured errors should not be retryable")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := New(ErrCodeMessageTooLarge, "too big",
		WithAgentID("git.agent"),
		WithTarget("planner"),
		WithMetadata("size", "2048"),
	)

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Error
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Code() != orig.Code() {
		t.Errorf("code = %v, want %v", decoded.Code(), orig.Code())
	}
	if decoded.AgentID() != orig.AgentID() {
		t.Errorf("agentID = %q, want %q", decoded.AgentID(), orig.AgentID())
	}
	if decoded.Target() != orig.Target() {
		t.Errorf("target = %q, want %q", decoded.Target(), orig.Target())
	}
	if decoded.Metadata()["size"] != "2048" {
		t.Errorf("metadata = %v, want size=2048", decoded.Metadata())
	}
	if decoded.Retryable() != orig.Retryable() {
		t.Errorf("retryable = %v, want %v", decoded.Retryable(), orig.Retryable())
	}
}

func TestMetadataCopy(t *testing.T) {
	err := New(ErrCodeInternal, "boom", WithMetadata("k", "v"))
	m := err.Metadata()
	m["k"] = "mutated"

	if err.Metadata()["k"] != "v" {
		t.Error("Metadata() should return a copy")
	}
}
