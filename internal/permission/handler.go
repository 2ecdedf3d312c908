package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/transport"
	"github.com/smuchara/pollstack/pkg/logger"
)

type ServiceAPI interface {
	GetUserEffectivePermissions(userID int64) ([]string, error)
	AssignPermissionGroups(userID int64, groupIDs []int64) ([]string, error)
	GrantPermission(userID, permissionID int64) ([]string, error)
	RevokePermission(userID, permissionID int64) ([]string, error)
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

func (h *Handler) userIDFromRoute(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}

// effectiveSetResponse is returned by every mutation so clients can refresh
// their permission view without a second call.
type effectiveSetResponse struct {
	UserID      int64    `json:"user_id"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) GetEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromRoute(w, r)
	if !ok {
		return
	}

	perms, err := h.Service.GetUserEffectivePermissions(userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, effectiveSetResponse{UserID: userID, Permissions: perms})
}

type assignGroupsDTO struct {
	GroupIDs []int64 `json:"group_ids"`
}

// AssignGroups replaces the user's permission group assignments.
func (h *Handler) AssignGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromRoute(w, r)
	if !ok {
		return
	}

	var dto assignGroupsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perms, err := h.Service.AssignPermissionGroups(userID, dto.GroupIDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, effectiveSetResponse{UserID: userID, Permissions: perms})
}

func (h *Handler) permissionIDFromRoute(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "permissionID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromRoute(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.permissionIDFromRoute(w, r)
	if !ok {
		return
	}

	perms, err := h.Service.GrantPermission(userID, permissionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, effectiveSetResponse{UserID: userID, Permissions: perms})
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromRoute(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.permissionIDFromRoute(w, r)
	if !ok {
		return
	}

	perms, err := h.Service.RevokePermission(userID, permissionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, effectiveSetResponse{UserID: userID, Permissions: perms})
}
