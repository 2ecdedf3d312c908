package presence

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/smuchara/pollstack/internal/auth"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/transport"
	"github.com/smuchara/pollstack/internal/user"
	"github.com/smuchara/pollstack/pkg/logger"
)

type ServiceAPI interface {
	GenerateQrToken(p *poll.Poll, ttl time.Duration) (*PollQrToken, error)
	RefreshQrToken(p *poll.Poll, ttl time.Duration) (*PollQrToken, error)
	GetActiveQrToken(p *poll.Poll) (*PollQrToken, error)
	VerifyQrToken(tokenValue string, u *user.User) (*VerifyResult, error)
	IssueRemoteAccessToken(p *poll.Poll, u *user.User) (*VotingAccessToken, error)
	CheckVotingEligibility(p *poll.Poll, u *user.User) (*EligibilityDecision, error)
	GetUserVerificationStatus(p *poll.Poll, u *user.User) (*VerificationStatus, error)
}

// PollGetter loads the poll addressed by the route.
type PollGetter interface {
	GetByID(id int64) (*poll.Poll, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	Polls       PollGetter
	ScanBaseURL string
	QRImageSize int
}

func NewHandler(service ServiceAPI, polls PollGetter, scanBaseURL string, qrImageSize int) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Polls:       polls,
		ScanBaseURL: scanBaseURL,
		QRImageSize: qrImageSize,
	}
}

func (h *Handler) pollFromRoute(w http.ResponseWriter, r *http.Request) (*poll.Poll, bool) {
	idStr := chi.URLParam(r, "pollID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid poll ID")
		return nil, false
	}

	p, err := h.Polls.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, false
	}
	return p, true
}

// GenerateQr mints a fresh presence QR token for the poll, replacing the
// currently active one.
func (h *Handler) GenerateQr(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	token, err := h.Service.GenerateQrToken(p, 0)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, token)
}

func (h *Handler) RefreshQr(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	token, err := h.Service.RefreshQrToken(p, 0)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) GetActiveQr(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	token, err := h.Service.GetActiveQrToken(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if token == nil {
		h.WriteError(w, http.StatusNotFound, "no active QR token")
		return
	}

	h.WriteJSON(w, http.StatusOK, token)
}

// GetQrImage renders the active token as a PNG for the voting-site display.
func (h *Handler) GetQrImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	token, err := h.Service.GetActiveQrToken(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if token == nil {
		h.WriteError(w, http.StatusNotFound, "no active QR token")
		return
	}

	size := h.QRImageSize
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil {
			size = s
		}
	}

	png, err := QRCodePNG(h.ScanBaseURL, token.Token, size)
	if err != nil {
		h.Logger.Error("failed to render QR image", "error", err, "poll_id", p.ID)
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("failed to write QR image", "error", err)
	}
}

type scanDTO struct {
	Token string `json:"token"`
}

// Scan verifies a scanned QR token for the caller. The response body is shaped
// for direct display: {success, message} plus the access token on success.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto scanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.Token == "" {
		h.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.Service.VerifyQrToken(dto.Token, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	h.WriteJSON(w, status, result)
}

// ScanByPath verifies the token embedded in the QR payload URL.
func (h *Handler) ScanByPath(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tokenValue := chi.URLParam(r, "token")
	if tokenValue == "" {
		h.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.Service.VerifyQrToken(tokenValue, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	h.WriteJSON(w, status, result)
}

// VerifyRemote issues a remote-channel access token for the caller.
func (h *Handler) VerifyRemote(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	token, err := h.Service.IssueRemoteAccessToken(p, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, token)
}

// GetEligibility returns the policy decision for the caller and poll.
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	decision, err := h.Service.CheckVotingEligibility(p, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, decision)
}

// GetVerificationStatus returns the token-state projection for the caller.
func (h *Handler) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, ok := h.pollFromRoute(w, r)
	if !ok {
		return
	}

	status, err := h.Service.GetUserVerificationStatus(p, u.User)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}
