// ABOUTME: Memory collaborator interface: conversation history storage and retrieval.
// ABOUTME: Local SQLite-backed implementation lives in sqlite.go, remote client in http.go.

package memory

import (
	"context"
	"time"
)

// Roles a remembered turn can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one remembered exchange entry, ordered oldest first.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory is the external collaborator the orchestrator consults for
// conversation history. Failures here degrade a turn, never abort it.
type Memory interface {
	StoreTurn(ctx context.Context, userID, conversationID, role, content string) error
	GetHistory(ctx context.Context, userID, conversationID string, limit int) ([]Turn, error)
}
