// ABOUTME: Tests for Event construction, validation, and wire JSON mapping.
// ABOUTME: Covers field renames (kind->type, payload->data) and empty-object defaults.

package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsIDAndTimestamp(t *testing.T) {
	e := New(KindInput, "u-1", "c-1", map[string]any{"content": "hi"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, KindInput, e.Kind)
	assert.Equal(t, "u-1", e.UserID)
	assert.Equal(t, "c-1", e.ConversationID)
	assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Second)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{"valid input", New(KindInput, "u-1", "", nil), nil},
		{"valid output", New(KindOutput, "u-1", "c-1", nil), nil},
		{"heartbeat without user", New(KindHeartbeat, "", "", nil), nil},
		{"input without user", New(KindInput, "", "", nil), ErrMissingUserID},
		{"error without user", New(KindError, "", "", nil), ErrMissingUserID},
		{"unknown kind", New(Kind("bogus"), "u-1", "", nil), ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJSON_WireFieldNames(t *testing.T) {
	e := Event{
		ID:             "evt-1",
		Kind:           KindOutput,
		UserID:         "u-1",
		ConversationID: "c-1",
		Payload:        map[string]any{"content": "Hello"},
		CreatedAt:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "output", got["type"])
	assert.Equal(t, "u-1", got["user_id"])
	assert.Equal(t, "c-1", got["conversation_id"])
	assert.Equal(t, "2025-01-01T00:00:00Z", got["timestamp"])
	assert.Equal(t, map[string]any{"content": "Hello"}, got["data"])
	// metadata serializes as an empty object, never null
	assert.Equal(t, map[string]any{}, got["metadata"])
}

func TestMarshalJSON_OmitsEmptyConversationID(t *testing.T) {
	e := New(KindHeartbeat, "", "", nil)

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	_, hasConv := got["conversation_id"]
	assert.False(t, hasConv)
	_, hasUser := got["user_id"]
	assert.False(t, hasUser)
	assert.Equal(t, map[string]any{}, got["data"])
}

func TestJSONRoundTrip(t *testing.T) {
	e := Event{
		ID:             "evt-2",
		Kind:           KindInput,
		UserID:         "u-2",
		ConversationID: "c-2",
		Payload:        map[string]any{"content": "ping"},
		CreatedAt:      time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Metadata:       map[string]string{"source": "api"},
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var back Event
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, e, back)
}
