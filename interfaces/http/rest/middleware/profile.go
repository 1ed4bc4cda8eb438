package middleware

import (
	"context"
	"net/http"

	"letters-backend/pkg/auth"

	"go.uber.org/zap"
)

// ProfileEnsurer provisions a profile row for a first-time caller.
type ProfileEnsurer interface {
	EnsureFromContext(ctx context.Context, user *auth.UserContext) error
}

// EnsureProfile provisions the caller's profile row on their first
// authenticated request. Best effort: a provisioning failure is logged and
// the request proceeds, the next request will try again.
func EnsureProfile(profiles ProfileEnsurer, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				if err := profiles.EnsureFromContext(r.Context(), user); err != nil {
					logger.Warn("Failed to ensure profile",
						zap.String("userID", user.UserID),
						zap.Error(err),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
