// Package session resolves who is acting on a request.  The HTTP layer
// verifies the caller's token once and stores the resulting Identity in
// the request context; everything downstream reads it from there and
// never sees credentials.
package session

import (
	"context"
	"errors"
)

// Roles carried by session tokens.
const (
	RoleOperator = "OPERATOR"
	RoleBuyer    = "BUYER"
)

// ErrUnauthenticated is returned when no identity is attached.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is an externally validated user.
type Identity struct {
	UserID string
	Role   string
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Provider answers "who is the current user".
type Provider interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// ContextProvider reads the identity placed in the context by the auth
// middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentUserID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return id.UserID, nil
}
