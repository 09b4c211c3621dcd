// ABOUTME: Tests for the SQLite store.
// ABOUTME: Uses in-memory databases; covers conversations, turns, users, and error cases.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_ConversationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := &Conversation{
		ID:        uuid.New().String(),
		UserID:    "u-1",
		Title:     "coffee chat",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.CreateConversation(ctx, conv))

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.UserID, got.UserID)
	assert.Equal(t, conv.Title, got.Title)

	assert.ErrorIs(t, s.CreateConversation(ctx, conv), ErrDuplicate)
}

func TestSQLiteStore_GetConversationNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SaveTurnCreatesConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	convID := uuid.New().String()
	turn := &Turn{
		ID:             uuid.New().String(),
		ConversationID: convID,
		UserID:         "u-1",
		Role:           RoleUser,
		Content:        "hi",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.SaveTurn(ctx, turn))

	// Conversation row was created on first use.
	conv, err := s.GetConversation(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", conv.UserID)
}

func TestSQLiteStore_GetTurnsChronologicalWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	convID := uuid.New().String()
	base := time.Now().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third", "fourth"} {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, s.SaveTurn(ctx, &Turn{
			ID:             uuid.New().String(),
			ConversationID: convID,
			UserID:         "u-1",
			Role:           role,
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	turns, err := s.GetTurns(ctx, "u-1", convID, 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// Newest window of 3, oldest first within it.
	assert.Equal(t, "second", turns[0].Content)
	assert.Equal(t, "fourth", turns[2].Content)
}

func TestSQLiteStore_GetTurnsScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	convID := uuid.New().String()
	require.NoError(t, s.SaveTurn(ctx, &Turn{
		ID: uuid.New().String(), ConversationID: convID,
		UserID: "u-1", Role: RoleUser, Content: "mine", CreatedAt: time.Now(),
	}))

	turns, err := s.GetTurns(ctx, "u-2", convID, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSQLiteStore_ListConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateConversation(ctx, &Conversation{
			ID:        uuid.New().String(),
			UserID:    "u-1",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.CreateConversation(ctx, &Conversation{
		ID: uuid.New().String(), UserID: "u-2",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	convs, err := s.ListConversations(ctx, "u-1", 10)
	require.NoError(t, err)
	assert.Len(t, convs, 3)
}

func TestSQLiteStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{
		ID:           uuid.New().String(),
		Username:     "ada",
		PasswordHash: "$2a$10$fakehash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)

	dup := &User{ID: uuid.New().String(), Username: "ada", PasswordHash: "x", CreatedAt: time.Now()}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicate)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
