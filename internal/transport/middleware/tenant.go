package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/organization"
)

// TenantResolver resolves a URL slug to a tenant.
type TenantResolver interface {
	ResolveSlug(slug string) (*organization.Organization, error)
}

// TenantContext resolves the {orgSlug} route segment and stores the tenant in
// the request context. Everything below the router receives the organization
// explicitly; no ambient tenant state.
func TenantContext(resolver TenantResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := chi.URLParam(r, "orgSlug")
			if slug == "" {
				http.Error(w, "missing organization slug", http.StatusBadRequest)
				return
			}

			org, err := resolver.ResolveSlug(slug)
			if err != nil {
				logger.Warn("unknown organization slug", "slug", slug)
				http.Error(w, "organization not found", http.StatusNotFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(organization.ContextWithOrganization(r.Context(), org)))
		})
	}
}
