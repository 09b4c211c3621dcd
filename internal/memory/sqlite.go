// ABOUTME: Local Memory implementation backed by the SQLite store.
// ABOUTME: Default collaborator when no external memory service is configured.

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/versehq/verse-gateway/internal/store"
)

// SQLiteMemory persists turns in the gateway's own SQLite store.
type SQLiteMemory struct {
	store store.Store
}

// NewSQLiteMemory wraps a store as a Memory collaborator.
func NewSQLiteMemory(s store.Store) *SQLiteMemory {
	return &SQLiteMemory{store: s}
}

// StoreTurn records one exchange entry.
func (m *SQLiteMemory) StoreTurn(ctx context.Context, userID, conversationID, role, content string) error {
	turn := &store.Turn{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := m.store.SaveTurn(ctx, turn); err != nil {
		return fmt.Errorf("saving turn: %w", err)
	}
	return nil
}

// GetHistory returns the most recent turns, oldest first.
func (m *SQLiteMemory) GetHistory(ctx context.Context, userID, conversationID string, limit int) ([]Turn, error) {
	turns, err := m.store.GetTurns(ctx, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}

	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, Turn{
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.CreatedAt,
		})
	}
	return out, nil
}

var _ Memory = (*SQLiteMemory)(nil)
