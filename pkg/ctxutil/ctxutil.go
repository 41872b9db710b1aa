// Package ctxutil carries caller identity and request metadata through
// context.Context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

// key is typed by its value, so a lookup can never see a value of the wrong type.
type key[T comparable] struct{ name string }

func (k key[T]) set(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

// get reports false for a missing value and for T's zero value.
func (k key[T]) get(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k).(T)
	var zero T
	return v, ok && v != zero
}

var (
	userIDKey      = key[uuid.UUID]{"user_id"}
	roleKey        = key[string]{"role"}
	accessTokenKey = key[string]{"access_token"}
	requestIDKey   = key[string]{"request_id"}
)

// WithUserID stores the authenticated user's id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context { return userIDKey.set(ctx, id) }

// UserIDFromCtx returns the user id; uuid.Nil counts as absent.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) { return userIDKey.get(ctx) }

func WithRole(ctx context.Context, role string) context.Context { return roleKey.set(ctx, role) }

// RoleFromCtx returns the role claim or "".
func RoleFromCtx(ctx context.Context) string {
	role, _ := roleKey.get(ctx)
	return role
}

// WithAccessToken stores the caller's bearer token. Outbound ledger calls
// made with this context run under the caller's row-level security.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return accessTokenKey.set(ctx, token)
}

func AccessTokenFromCtx(ctx context.Context) (string, bool) { return accessTokenKey.get(ctx) }

// CopyAuth moves the caller identity from src onto dst, typically a
// background context outliving the request. The request id stays behind.
func CopyAuth(dst, src context.Context) context.Context {
	if id, ok := UserIDFromCtx(src); ok {
		dst = WithUserID(dst, id)
	}
	if role, ok := roleKey.get(src); ok {
		dst = WithRole(dst, role)
	}
	if token, ok := AccessTokenFromCtx(src); ok {
		dst = WithAccessToken(dst, token)
	}
	return dst
}

func WithRequestID(ctx context.Context, id string) context.Context { return requestIDKey.set(ctx, id) }

// RequestIDFromCtx returns the request id or "".
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := requestIDKey.get(ctx)
	return id
}
