package middleware

import (
	"context"
	"net/http"

	"wallet/internal/models"
)

type RoleStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

// RequireAdmin gates a route on the caller's role. The role comes from
// the database on every request, never from the token.
func RequireAdmin(roles RoleStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := roles.GetByID(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify role", http.StatusInternalServerError)
				return
			}
			if !user.IsAdmin() {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
