// ABOUTME: Event is the immutable message unit exchanged through the event bus.
// ABOUTME: Defines the kind discriminator and the wire (SSE) JSON mapping.

package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the event types flowing through the bus.
type Kind string

// Known event kinds.
const (
	KindInput                 Kind = "input"
	KindOutput                Kind = "output"
	KindTyping                Kind = "typing"
	KindHeartbeat             Kind = "heartbeat"
	KindError                 Kind = "error"
	KindConnectionEstablished Kind = "connection_established"
)

// ErrMissingUserID is returned by Validate for events that require an owner.
var ErrMissingUserID = errors.New("event: user_id is required")

// ErrUnknownKind is returned by Validate for unrecognized kind values.
var ErrUnknownKind = errors.New("event: unknown kind")

// Event is the only message type crossing the bus. Once published it must be
// treated as immutable; no component may mutate a received Event.
type Event struct {
	ID             string
	Kind           Kind
	UserID         string
	ConversationID string
	Payload        map[string]any
	CreatedAt      time.Time
	Metadata       map[string]string
}

// New creates an Event with a fresh ID and creation timestamp.
// Payload may be nil; it serializes as an empty object.
func New(kind Kind, userID, conversationID string, payload map[string]any) Event {
	return Event{
		ID:             uuid.New().String(),
		Kind:           kind,
		UserID:         userID,
		ConversationID: conversationID,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate checks the structural invariants: a recognized kind, and a
// user ID on every kind except heartbeat.
func (e Event) Validate() error {
	switch e.Kind {
	case KindInput, KindOutput, KindTyping, KindHeartbeat, KindError, KindConnectionEstablished:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.UserID == "" && e.Kind != KindHeartbeat {
		return fmt.Errorf("%w (kind %q)", ErrMissingUserID, e.Kind)
	}
	return nil
}

// wireEvent is the JSON shape delivered to clients. Field names follow the
// SSE surface contract: kind as "type", payload as "data", ISO-8601 timestamp.
type wireEvent struct {
	ID             string            `json:"id"`
	Type           Kind              `json:"type"`
	Data           map[string]any    `json:"data"`
	UserID         string            `json:"user_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata"`
}

// MarshalJSON serializes the event in its wire form. Payload and metadata
// always appear as objects, never null.
func (e Event) MarshalJSON() ([]byte, error) {
	data := e.Payload
	if data == nil {
		data = map[string]any{}
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal(wireEvent{
		ID:             e.ID,
		Type:           e.Kind,
		Data:           data,
		UserID:         e.UserID,
		ConversationID: e.ConversationID,
		Timestamp:      e.CreatedAt,
		Metadata:       meta,
	})
}

// UnmarshalJSON decodes the wire form back into an Event.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Kind = w.Type
	e.UserID = w.UserID
	e.ConversationID = w.ConversationID
	e.Payload = w.Data
	e.CreatedAt = w.Timestamp
	e.Metadata = w.Metadata
	return nil
}
