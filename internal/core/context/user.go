// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"clinicore/internal/core/id"
)

// Roles known to the platform.
const (
	RoleAdmin     = "admin"
	RoleFranchise = "franchise"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID      string
	Email       string
	Role        string
	FranchiseID id.ID // zero for head-office (admin) users
}

// IsAdmin reports whether this user holds the admin role.
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetFranchiseID returns the caller's franchise or nil UUID for admins.
func GetFranchiseID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.FranchiseID
	}
	return id.Nil()
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(ctx context.Context) bool {
	u := GetUser(ctx)
	return u != nil && u.Role == RoleAdmin
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	return u != nil && u.Role == role
}
