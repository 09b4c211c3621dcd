// Package store provides SQLite-backed persistence for conversations,
// turns, and user accounts.
//
// # Overview
//
// The Store interface is the persistence boundary; SQLiteStore is the only
// implementation, built on modernc.org/sqlite (pure Go, no cgo). The schema
// is created on open and WAL mode is enabled for concurrent readers.
//
// All reads are scoped by user ID: a caller can only see conversations and
// turns they own.
//
// # Entities
//
//   - Conversation: one thread of exchanges for a user
//   - Turn: a single user or assistant message within a conversation
//   - User: an account with a bcrypt password hash
//
// SaveTurn upserts the owning conversation in the same transaction, so
// callers never have to create conversations explicitly.
package store
