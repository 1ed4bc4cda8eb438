// Package auth carries the authenticated caller through request contexts and
// implements the DynamoDB-backed request rate limiter.
package auth

import (
	"context"
	"errors"
)

// UserContext is the caller identity extracted from the validated Cognito
// token. Token validation itself happens upstream (API Gateway authorizer);
// this is the opaque claim set the handlers trust.
type UserContext struct {
	UserID string
	Email  string
	Name   string
	Groups []string
}

// IsAdmin reports whether the caller belongs to the admin group.
func (u *UserContext) IsAdmin() bool {
	return u.InGroup("admin")
}

// InGroup reports whether the caller belongs to the named Cognito group.
func (u *UserContext) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

type contextKey string

const userContextKey contextKey = "letters.user"

// ErrNoUserInContext is returned when a handler runs without authentication.
var ErrNoUserInContext = errors.New("no user in context")

// SetUserInContext attaches the caller identity to the request context.
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the caller identity set by the auth middleware.
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
