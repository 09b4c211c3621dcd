// ABOUTME: Store interface and data types for verse-gateway persistence.
// ABOUTME: Defines Conversation, Turn, User structs and the Store interface.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint is violated.
var ErrDuplicate = errors.New("already exists")

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation scopes a sequence of turns for one user.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one message in a conversation, from the user or the assistant.
type Turn struct {
	ID             string
	ConversationID string
	UserID         string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// User is a local account used only to mint access tokens.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Store defines the persistence operations used by the memory layer and
// the token bootstrap flow.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]*Conversation, error)

	// Turns
	SaveTurn(ctx context.Context, turn *Turn) error
	GetTurns(ctx context.Context, userID, conversationID string, limit int) ([]*Turn, error)

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	Close() error
}
