package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentbus/errors"
)

// MessageType classifies an envelope.
type MessageType string

const (
	// TypeRequest marks a message that expects a correlated response.
	TypeRequest MessageType = "request"

	// TypeResponse marks a correlated reply to an earlier request.
	TypeResponse MessageType = "response"

	// TypeNotification marks a one-way targeted message.
	TypeNotification MessageType = "notification"

	// TypeBroadcast marks a message addressed to every subscriber.
	TypeBroadcast MessageType = "broadcast"
)

// BroadcastTarget is the target stamped on broadcast messages. Broadcasts
// are excluded from per-target delivery bookkeeping.
const BroadcastTarget = "*"

// Priority orders messages for eviction under queue pressure.
// Higher values are never evicted in favor of lower ones.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

// String returns the priority name.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePriority converts a priority name to a Priority.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityLow, errors.InvalidInput(fmt.Sprintf("unknown priority %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Message is the immutable envelope exchanged between agents.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// From is the sending agent's id. Must be non-empty.
	From string `json:"from"`

	// To is the target agent id, a dot-delimited pattern target, or "*"
	// for broadcasts.
	To string `json:"to"`

	// Type classifies the envelope.
	Type MessageType `json:"type"`

	// Payload is opaque to the bus, bounded by Config.MaxPayloadSize.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Timestamp is when the envelope was created.
	Timestamp time.Time `json:"timestamp"`

	// Priority orders the message for eviction under queue pressure.
	Priority Priority `json:"priority"`

	// RequiresResponse marks a message the sender is waiting on.
	RequiresResponse bool `json:"requires_response,omitempty"`

	// CorrelationID links a response to its originating request.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewMessage creates an envelope with a generated id, the current time,
// and medium priority.
func NewMessage(from, to string, typ MessageType, payload json.RawMessage) *Message {
	return &Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now(),
		Priority:  PriorityMedium,
	}
}

// IsBroadcast reports whether the message is addressed to every subscriber.
func (m *Message) IsBroadcast() bool {
	return m.To == BroadcastTarget || m.Type == TypeBroadcast
}

// validate checks envelope invariants against the bus configuration.
func (m *Message) validate(maxPayload int) error {
	if m.From == "" {
		return errors.InvalidInput("message from is empty")
	}
	if m.To == "" {
		return errors.InvalidInput("message to is empty")
	}
	if maxPayload > 0 && len(m.Payload) > maxPayload {
		return errors.MessageTooLarge(len(m.Payload), maxPayload)
	}
	return nil
}
