package middleware

import (
	"log/slog"
	"net/http"

	"github.com/smuchara/pollstack/internal/auth"
)

// RequirePermissions creates a middleware that passes when the user holds any
// of the listed permissions. Super admins always pass.
func RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.UserFromContext(r.Context())
			if !ok || u == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !u.HasAnyPermission(permissions) {
				slog.Warn("access denied: user lacks required permissions",
					"user_id", u.ID,
					"required_permissions", permissions,
					"user_permissions", u.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
