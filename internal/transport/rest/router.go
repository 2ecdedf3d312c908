package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/smuchara/pollstack/internal/auth"
	"github.com/smuchara/pollstack/internal/department"
	"github.com/smuchara/pollstack/internal/permission"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/presence"
	"github.com/smuchara/pollstack/internal/transport/middleware"
	"github.com/smuchara/pollstack/internal/transport/swagger"
	"github.com/smuchara/pollstack/internal/vote"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth       *auth.Handler
	Poll       *poll.Handler
	Presence   *presence.Handler
	Vote       *vote.Handler
	Permission *permission.Handler
	Department *department.Handler
}

// RegisterAllRoutes wires the full route tree. Tenant routes live under
// /orgs/{orgSlug} and resolve the slug before any handler runs; system-wide
// poll administration lives under /system and requires the super admin role.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, sqlxDB *sqlx.DB, h Handlers, rbac *auth.RBACAuthorization, tenants middleware.TenantResolver, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	abac := &auth.ABACPolicy{}

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.Me)

			// QR scanning is tenant-agnostic: the token alone identifies the
			// poll, so voters scan without knowing the org slug.
			pr.Post("/scan", h.Presence.Scan)
			pr.Get("/scan/{token}", h.Presence.ScanByPath)

			// Permission administration
			pr.Route("/users/{userID}", func(ur chi.Router) {
				ur.Get("/permissions", h.Permission.GetEffectivePermissions)

				ur.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManagePermissions())
					mr.Put("/permission-groups", h.Permission.AssignGroups)
					mr.Post("/permissions/{permissionID}/grant", h.Permission.GrantPermission)
					mr.Post("/permissions/{permissionID}/revoke", h.Permission.RevokePermission)
				})
			})

			// System-wide polls, outside any tenant
			pr.Route("/system/polls", func(sr chi.Router) {
				sr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireSuperAdmin())
					ar.Post("/", h.Poll.CreatePoll)
				})
				registerPollRoutes(sr, sqlxDB, h, rbac, abac)
			})

			// Tenant routes
			pr.Route("/orgs/{orgSlug}", func(or chi.Router) {
				or.Use(middleware.TenantContext(tenants, logger))

				or.Route("/polls", func(plr chi.Router) {
					plr.Group(func(ar chi.Router) {
						ar.Use(rbac.RequireManagePolls())
						ar.Post("/", h.Poll.CreatePoll)
					})
					registerPollRoutes(plr, sqlxDB, h, rbac, abac)
				})

				or.Route("/departments", func(dr chi.Router) {
					dr.Get("/", h.Department.ListDepartments)
					dr.Get("/{departmentID}/members", h.Department.ListMembers)

					dr.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManageDepartments())
						mr.Put("/{departmentID}/members/{userID}", h.Department.AddMember)
						mr.Delete("/{departmentID}/members/{userID}", h.Department.RemoveMember)
					})
				})
			})
		})
	})
}

// registerPollRoutes mounts the per-poll subtree shared by tenant and system
// scopes.
func registerPollRoutes(r chi.Router, sqlxDB *sqlx.DB, h Handlers, rbac *auth.RBACAuthorization, abac *auth.ABACPolicy) {
	r.Route("/{pollID}", func(pr chi.Router) {
		pr.Get("/", h.Poll.GetPoll)
		pr.Get("/options", h.Poll.GetOptions)

		// Voter-facing verification and voting
		pr.Get("/eligibility", h.Presence.GetEligibility)
		pr.Get("/verification-status", h.Presence.GetVerificationStatus)
		pr.Post("/verify-remote", h.Presence.VerifyRemote)
		pr.Post("/votes", h.Vote.CastVote)
		pr.Get("/votes/me", h.Vote.GetMyVoteStatus)

		// Poll administration: owner, tenant manager, or super admin
		pr.Group(func(mr chi.Router) {
			mr.Use(auth.RequireCanModifyPoll(sqlxDB, abac))
			mr.Patch("/status", h.Poll.UpdateStatus)

			mr.Get("/invited-users", h.Poll.GetInvitedUsers)
			mr.Post("/invitations/users", h.Poll.InviteUsers)
			mr.Delete("/invitations/users", h.Poll.RevokeUserInvitations)
			mr.Post("/invitations/departments", h.Poll.InviteDepartments)
			mr.Delete("/invitations/departments", h.Poll.RevokeDepartmentInvitations)

			mr.Post("/qr", h.Presence.GenerateQr)
			mr.Post("/qr/refresh", h.Presence.RefreshQr)
			mr.Get("/qr", h.Presence.GetActiveQr)
			mr.Get("/qr/image", h.Presence.GetQrImage)

			// Proxy authority additionally needs the assign_proxies or
			// manage_polls permission; modify authority alone is not enough.
			mr.Group(func(xr chi.Router) {
				xr.Use(middleware.RequirePermissions(auth.PermAssignProxies, auth.PermManagePolls))
				xr.Post("/proxies", h.Vote.AssignProxy)
				xr.Delete("/proxies/{userID}", h.Vote.RevokeProxy)
			})
		})

		pr.Group(func(rr chi.Router) {
			rr.Use(auth.RequireCanViewPollResults(sqlxDB, abac))
			rr.Get("/results", h.Vote.GetResults)
		})
	})
}
