package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
)

// ABACPolicy holds attribute-based checks that need the resource row, not just
// the permission set: poll ownership and tenant residency.
type ABACPolicy struct{}

// CanModifyPoll allows the poll's creator, anyone holding manage_polls inside
// the poll's tenant, and super admins.
func (p *ABACPolicy) CanModifyPoll(u *AuthenticatedUser, createdBy int64, orgID *int64) error {
	if u == nil {
		return ErrForbidden
	}
	if u.IsSuperAdmin() {
		return nil
	}
	if u.ID == createdBy {
		return nil
	}
	if u.HasPermission(PermManagePolls) {
		if orgID == nil {
			return ErrForbidden
		}
		if u.BelongsToOrganization(*orgID) {
			return nil
		}
	}
	return ErrForbidden
}

// CanViewPollResults allows result access for the same set as CanModifyPoll
// plus holders of view_results in the poll's tenant.
func (p *ABACPolicy) CanViewPollResults(u *AuthenticatedUser, createdBy int64, orgID *int64) error {
	if err := p.CanModifyPoll(u, createdBy, orgID); err == nil {
		return nil
	}
	if u != nil && u.HasPermission(PermViewResults) && orgID != nil && u.BelongsToOrganization(*orgID) {
		return nil
	}
	return ErrForbidden
}

// RequireABAC is a generic middleware wrapper that runs an ABAC check function.
func RequireABAC(abac *ABACPolicy, check func(a *ABACPolicy, u *AuthenticatedUser, r *http.Request) error) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok || u == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := check(abac, u, r); err != nil {
				if errors.Is(err, ErrForbidden) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func pollOwnership(db *sqlx.DB, r *http.Request) (createdBy int64, orgID *int64, err error) {
	idStr := chi.URLParam(r, "pollID")
	if idStr == "" {
		return 0, nil, ErrForbidden
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, nil, err
	}

	var row struct {
		CreatedBy      int64  `db:"created_by"`
		OrganizationID *int64 `db:"organization_id"`
	}
	err = db.GetContext(r.Context(), &row,
		"SELECT created_by, organization_id FROM polls WHERE id=$1 AND deleted_at IS NULL", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrForbidden
		}
		return 0, nil, err
	}
	return row.CreatedBy, row.OrganizationID, nil
}

// RequireCanModifyPoll builds a middleware that checks whether the
// authenticated user may manage the poll addressed by the route.
func RequireCanModifyPoll(db *sqlx.DB, abac *ABACPolicy) func(next http.Handler) http.Handler {
	return RequireABAC(abac, func(a *ABACPolicy, u *AuthenticatedUser, r *http.Request) error {
		createdBy, orgID, err := pollOwnership(db, r)
		if err != nil {
			return err
		}
		return a.CanModifyPoll(u, createdBy, orgID)
	})
}

// RequireCanViewPollResults builds a middleware that checks result access for
// the poll addressed by the route.
func RequireCanViewPollResults(db *sqlx.DB, abac *ABACPolicy) func(next http.Handler) http.Handler {
	return RequireABAC(abac, func(a *ABACPolicy, u *AuthenticatedUser, r *http.Request) error {
		createdBy, orgID, err := pollOwnership(db, r)
		if err != nil {
			return err
		}
		return a.CanViewPollResults(u, createdBy, orgID)
	})
}
