package poll

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/auth"
	"github.com/smuchara/pollstack/internal/organization"
	"github.com/smuchara/pollstack/internal/transport"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/pkg/logger"
)

type ServiceAPI interface {
	GetByID(id int64) (*Poll, error)
	CreatePoll(dto CreatePollDTO, createdBy int64, organizationID *int64) (*Poll, error)
	UpdateStatus(pollID int64, status Status, changedBy int64) error
	IsVisibleTo(p *Poll, u *user.User) (bool, error)
	GetAllInvitedUsers(p *Poll) ([]*user.User, error)
	InviteUsers(p *Poll, userIDs []int64, invitedBy int64) error
	RevokeUserInvitations(p *Poll, userIDs []int64) error
	InviteDepartments(p *Poll, departmentIDs []int64, invitedBy int64) error
	RevokeDepartmentInvitations(p *Poll, departmentIDs []int64) error
	ListOptions(pollID int64) ([]*Option, error)
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

func (h *Handler) pollFromRoute(w http.ResponseWriter, r *http.Request) (*Poll, bool) {
	idStr := chi.URLParam(r, "pollID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid poll ID")
		return nil, false
	}

	p, err := h.Service.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, false
	}
	return p, true
}

// CreatePoll creates a poll inside the tenant resolved from the route. System
// polls are created through the system route, which carries no tenant.
func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreatePollDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePoll: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var orgID *int64
	if org, ok := organization.FromContext(r.Context()); ok {
		orgID = &org.ID
	}

	p, err := h.Service.CreatePoll(dto, u.ID, orgID)
	if err != nil {
		h.Logger.Error("CreatePoll: service error", "error", err, "user_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

// GetPoll returns the poll when it is visible to the caller; hidden polls are
// indistinguishable from missing ones.
func (h *Handler) GetPoll(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	visible, err := h.Service.IsVisibleTo(p, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !visible {
		h.WriteError(w, http.StatusNotFound, "poll not found")
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

type updateStatusDTO struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	var dto updateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch dto.Status {
	case StatusScheduled, StatusActive, StatusEnded, StatusArchived:
	default:
		h.WriteError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.Service.UpdateStatus(p.ID, dto.Status, u.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("poll status updated", "poll_id", p.ID, "status", dto.Status)
	w.WriteHeader(http.StatusNoContent)
}

// GetInvitedUsers returns the derived invited set: direct invitations unioned
// with members of invited departments.
func (h *Handler) GetInvitedUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	users, err := h.Service.GetAllInvitedUsers(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *Handler) InviteUsers(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	var dto InviteUsersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.InviteUsers(p, dto.UserIDs, u.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeUserInvitations(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	var dto InviteUsersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.RevokeUserInvitations(p, dto.UserIDs); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) InviteDepartments(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	var dto InviteDepartmentsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.InviteDepartments(p, dto.DepartmentIDs, u.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeDepartmentInvitations(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	var dto InviteDepartmentsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.RevokeDepartmentInvitations(p, dto.DepartmentIDs); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	options, err := h.Service.ListOptions(p.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"options": options})
}
