// ABOUTME: Authenticated identity propagation through request contexts
// ABOUTME: Provides WithIdentity/FromContext for handlers downstream of the middleware

package auth

import (
	"context"
)

// Identity holds the authenticated caller information extracted from a request.
// It is populated by the HTTP middleware and retrieved from context in handlers.
type Identity struct {
	UserID string
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
// Only for handlers that are always mounted behind Middleware.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
