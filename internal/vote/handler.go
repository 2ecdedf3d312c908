package vote

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/auth"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/transport"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/pkg/logger"
)

type ServiceAPI interface {
	CastVote(dto CastVoteDTO, actor *user.User, ipAddress string) (*Vote, error)
	HasVoted(pollID, userID int64) (bool, error)
	AssignProxy(p *poll.Poll, dto AssignProxyDTO, createdBy int64) (*PollProxy, error)
	RevokeProxy(pollID, principalID int64) error
	GetResults(pollID int64) ([]OptionCount, error)
}

// PollGetter loads the poll addressed by the route.
type PollGetter interface {
	GetByID(id int64) (*poll.Poll, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Polls   PollGetter
}

func NewHandler(service ServiceAPI, polls PollGetter) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Polls:       polls,
	}
}

func (h *Handler) pollIDFromRoute(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "pollID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid poll ID")
		return 0, false
	}
	return id, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type castVoteRequest struct {
	OptionID   int64  `json:"option_id"`
	OnBehalfOf *int64 `json:"on_behalf_of,omitempty"`
}

// CastVote records the caller's vote in the poll addressed by the route.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pollID, ok := h.pollIDFromRoute(w, r)
	if !ok {
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CastVote: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dto := CastVoteDTO{
		PollID:     pollID,
		OptionID:   req.OptionID,
		OnBehalfOf: req.OnBehalfOf,
	}

	v, err := h.Service.CastVote(dto, u.User, clientIP(r))
	if err != nil {
		h.Logger.Warn("CastVote: rejected", "error", err, "poll_id", pollID, "actor_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, v)
}

// GetMyVoteStatus reports whether the caller already voted in the poll.
func (h *Handler) GetMyVoteStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pollID, ok := h.pollIDFromRoute(w, r)
	if !ok {
		return
	}

	voted, err := h.Service.HasVoted(pollID, u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"poll_id":   pollID,
		"has_voted": voted,
	})
}

// GetResults returns the per-option tally.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollIDFromRoute(w, r)
	if !ok {
		return
	}

	results, err := h.Service.GetResults(pollID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"poll_id": pollID,
		"results": results,
	})
}

// AssignProxy authorizes a proxy voter for one principal in the poll.
func (h *Handler) AssignProxy(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pollID, ok := h.pollIDFromRoute(w, r)
	if !ok {
		return
	}

	p, err := h.Polls.GetByID(pollID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto AssignProxyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proxy, err := h.Service.AssignProxy(p, dto, u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, proxy)
}

// RevokeProxy removes the proxy assignment for the addressed principal.
func (h *Handler) RevokeProxy(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollIDFromRoute(w, r)
	if !ok {
		return
	}

	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := h.Service.RevokeProxy(pollID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
