package bus

import (
	"encoding/json"
	"testing"

	"github.com/vinayprograms/agentbus/errors"
)

func TestNewMessageDefaults(t *testing.T) {
	m := NewMessage("a", "b", TypeNotification, json.RawMessage(`{}`))
	if m.ID == "" {
		t.Error("ID must be assigned")
	}
	if m.Priority != PriorityMedium {
		t.Errorf("default priority = %v, want medium", m.Priority)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp must be stamped")
	}
	if m.RequiresResponse || m.CorrelationID != "" {
		t.Error("plain messages carry no request state")
	}
}

func TestMessageValidate(t *testing.T) {
	m := NewMessage("", "b", TypeNotification, nil)
	if err := m.validate(0); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty from: got %v", err)
	}
	m = NewMessage("a", "", TypeNotification, nil)
	if err := m.validate(0); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty to: got %v", err)
	}
	m = NewMessage("a", "b", TypeNotification, json.RawMessage(`"xxxx"`))
	if err := m.validate(3); !errors.Is(err, errors.ErrCodeMessageTooLarge) {
		t.Errorf("oversized payload: got %v", err)
	}
}

func TestIsBroadcast(t *testing.T) {
	m := NewMessage("a", BroadcastTarget, TypeNotification, nil)
	if !m.IsBroadcast() {
		t.Error("target * must be a broadcast")
	}
	m = NewMessage("a", "b", TypeBroadcast, nil)
	if !m.IsBroadcast() {
		t.Error("broadcast type must be a broadcast")
	}
	m = NewMessage("a", "b", TypeNotification, nil)
	if m.IsBroadcast() {
		t.Error("plain notification is not a broadcast")
	}
}

func TestPriorityText(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		text, err := p.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Priority
		if err := back.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if back != p {
			t.Errorf("round trip %v -> %s -> %v", p, text, back)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("unknown priority must not parse")
	}
}
