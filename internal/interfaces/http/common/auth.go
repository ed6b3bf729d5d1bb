package common

import (
	"context"
	"strings"
)

type userContextKey struct{}

// AuthenticatedUser は Bearer トークンから復元した投稿者。ID がストアの author になる。
type AuthenticatedUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ContextWithUser stores the authenticated user into context.
func ContextWithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user. ok is false for anonymous requests.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(AuthenticatedUser)
	if !ok || strings.TrimSpace(user.ID) == "" {
		return AuthenticatedUser{}, false
	}
	return user, true
}
