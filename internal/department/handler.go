package department

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/organization"
	"github.com/smuchara/pollstack/internal/transport"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/pkg/logger"
)

type ServiceAPI interface {
	GetByID(id int64) (*Department, error)
	ListByOrganization(orgID int64) ([]*Department, error)
	AddMember(departmentID, userID int64) error
	RemoveMember(departmentID, userID int64) error
	ListMembers(departmentID int64) ([]*user.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) idsFromRoute(w http.ResponseWriter, r *http.Request) (deptID, userID int64, ok bool) {
	deptID, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return 0, 0, false
	}
	userID, err = strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return 0, 0, false
	}
	return deptID, userID, true
}

// ListDepartments lists the tenant's departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	org, ok := organization.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "missing organization")
		return
	}

	departments, err := h.Service.ListByOrganization(org.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	deptID, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return
	}

	if _, err := h.Service.GetByID(deptID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	members, err := h.Service.ListMembers(deptID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// AddMember is idempotent; re-adding an existing member succeeds.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	deptID, userID, ok := h.idsFromRoute(w, r)
	if !ok {
		return
	}

	if err := h.Service.AddMember(deptID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember is idempotent; removing a non-member succeeds.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	deptID, userID, ok := h.idsFromRoute(w, r)
	if !ok {
		return
	}

	if err := h.Service.RemoveMember(deptID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
