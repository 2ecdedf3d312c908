package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/user"
)

// Messages returned verbatim to end users scanning a code. Intentionally plain
// strings rather than structured error codes.
const (
	MsgInvalidOrExpired      = "Invalid or expired QR code."
	MsgOnSiteUnsupported     = "This poll does not support on-site verification."
	MsgNotEligible           = "You are not eligible to vote in this poll."
	MsgPollNotActive         = "This poll is not currently active."
	MsgAlreadyVerified       = "Presence already verified for this poll."
	MsgPresenceVerified      = "Presence verified. You can now vote on-site."
	MsgOnSiteRequired        = "On-site verification is required before voting in this poll."
	MsgPollNotVotable        = "This poll cannot be voted on by this user."
	MsgRemoteUnsupportedPoll = "This poll requires on-site verification."
)

// Repository defines storage for both token types. Rotation and reissuance are
// transactional: readers never observe two active QR tokens for a poll, nor a
// window with neither the old nor the new access token.
type Repository interface {
	RotateQrToken(t *PollQrToken) error
	GetActiveQrToken(pollID int64) (*PollQrToken, error)
	FindScannableQrToken(token string) (*PollQrToken, error)
	ReplaceAccessToken(t *VotingAccessToken) error
	GetAccessToken(pollID, userID int64) (*VotingAccessToken, error)
}

// PollDirectory is the slice of the poll service the subsystem reads from.
type PollDirectory interface {
	GetByID(id int64) (*poll.Poll, error)
	CanBeVotedOnBy(p *poll.Poll, u *user.User) (bool, error)
}

// VerifyResult is the QR scan outcome, shaped for direct display.
type VerifyResult struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	AccessToken *VotingAccessToken `json:"access_token,omitempty"`
}

// EligibilityDecision is the policy outcome for a (poll, user) pair.
type EligibilityDecision struct {
	CanVote          bool             `json:"can_vote"`
	Reason           string           `json:"reason,omitempty"`
	VerificationType VerificationType `json:"verification_type,omitempty"`
}

// VerificationStatus is a read-only projection of token state and poll
// capability flags.
type VerificationStatus struct {
	PollID                int64            `json:"poll_id"`
	UserID                int64            `json:"user_id"`
	AccessMode            poll.AccessMode  `json:"voting_access_mode"`
	SupportsRemote        bool             `json:"supports_remote"`
	SupportsOnPremise     bool             `json:"supports_on_premise"`
	HasValidAccessToken   bool             `json:"has_valid_access_token"`
	VerificationType      VerificationType `json:"verification_type,omitempty"`
	AccessTokenExpiresAt  *time.Time       `json:"access_token_expires_at,omitempty"`
	QrTokenActive         bool             `json:"qr_token_active"`
	QrTokenExpiresAt      *time.Time       `json:"qr_token_expires_at,omitempty"`
	EligibleWithoutAction bool             `json:"eligible_without_action"`
}

// Service implements the two-phase presence flow: ephemeral QR proof of
// presence, then a durable voting access token.
type Service struct {
	repo      Repository
	polls     PollDirectory
	bus       *events.EventBus
	logger    *slog.Logger
	qrTTL     time.Duration
	accessTTL time.Duration
}

func NewService(repo Repository, polls PollDirectory, bus *events.EventBus, logger *slog.Logger, qrTTL, accessTTL time.Duration) *Service {
	if qrTTL <= 0 {
		qrTTL = internal.DefaultQRTokenTTL
	}
	if accessTTL <= 0 {
		accessTTL = internal.DefaultAccessTokenTTL
	}
	return &Service{
		repo:      repo,
		polls:     polls,
		bus:       bus,
		logger:    logger,
		qrTTL:     qrTTL,
		accessTTL: accessTTL,
	}
}

// GenerateQrToken mints a fresh presence token for the poll, deactivating any
// currently-active token in the same transaction so exactly one QR code scans
// at any instant. ttl <= 0 uses the configured default.
func (s *Service) GenerateQrToken(p *poll.Poll, ttl time.Duration) (*PollQrToken, error) {
	if !p.VotingAccessMode.SupportsOnPremise() {
		return nil, internal.NewInvalidOperationError(
			"cannot generate a presence QR token for a remote-only poll",
			internal.ErrCodeUnsupportedMode)
	}

	if ttl <= 0 {
		ttl = s.qrTTL
	}

	value, err := newTokenValue()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate token value", err)
	}

	token := &PollQrToken{
		PollID:    p.ID,
		Token:     value,
		ExpiresAt: time.Now().Add(ttl),
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := s.repo.RotateQrToken(token); err != nil {
		s.logger.Error("failed to rotate qr token", "error", err, "poll_id", p.ID)
		return nil, err
	}

	s.logger.Info("qr token generated", "poll_id", p.ID, "expires_at", token.ExpiresAt)
	return token, nil
}

// RefreshQrToken is GenerateQrToken under a call-site-intent name; the
// deactivate-then-create behavior is identical.
func (s *Service) RefreshQrToken(p *poll.Poll, ttl time.Duration) (*PollQrToken, error) {
	return s.GenerateQrToken(p, ttl)
}

// GetActiveQrToken returns the current active, unexpired token or nil.
func (s *Service) GetActiveQrToken(p *poll.Poll) (*PollQrToken, error) {
	token, err := s.repo.GetActiveQrToken(p.ID)
	if err != nil {
		return nil, err
	}
	if token == nil || !token.IsScannable() {
		return nil, nil
	}
	return token, nil
}

// VerifyQrToken validates a scanned token value for the user and, on success,
// issues (or re-confirms) an on-premise voting access token. Every failure path
// carries a distinct human-readable message for direct display.
func (s *Service) VerifyQrToken(tokenValue string, u *user.User) (*VerifyResult, error) {
	token, err := s.repo.FindScannableQrToken(tokenValue)
	if err != nil {
		return nil, err
	}
	if token == nil || !token.IsScannable() {
		return &VerifyResult{Success: false, Message: MsgInvalidOrExpired}, nil
	}

	p, err := s.polls.GetByID(token.PollID)
	if err != nil {
		return &VerifyResult{Success: false, Message: MsgInvalidOrExpired}, nil
	}

	if !p.VotingAccessMode.SupportsOnPremise() {
		return &VerifyResult{Success: false, Message: MsgOnSiteUnsupported}, nil
	}

	votable, err := s.polls.CanBeVotedOnBy(p, u)
	if err != nil {
		return nil, err
	}
	if !votable {
		return &VerifyResult{Success: false, Message: MsgNotEligible}, nil
	}

	if !p.IsActiveNow() {
		return &VerifyResult{Success: false, Message: MsgPollNotActive}, nil
	}

	// Re-scans are idempotent: an existing valid on-premise token is confirmed
	// without reissuing.
	existing, err := s.repo.GetAccessToken(p.ID, u.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsValid() && existing.VerificationType == VerificationOnPremise {
		return &VerifyResult{Success: true, Message: MsgAlreadyVerified, AccessToken: existing}, nil
	}

	accessToken, err := s.IssueVotingAccessToken(p, u, VerificationOnPremise, 0)
	if err != nil {
		return nil, err
	}

	s.logger.Info("presence verified via qr scan", "poll_id", p.ID, "user_id", u.ID)

	// Published only on a fresh verification; idempotent re-scans stay silent.
	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPresenceVerifiedEvent(
			p.ID, u.ID, string(VerificationOnPremise)))
	}

	return &VerifyResult{Success: true, Message: MsgPresenceVerified, AccessToken: accessToken}, nil
}

// IssueVotingAccessToken is the single write path for access tokens: any prior
// token for the (poll, user) pair is deleted and a fresh row created in one
// transaction, never an upsert, so issued_at/expires_at always reflect the
// newest issuance.
func (s *Service) IssueVotingAccessToken(p *poll.Poll, u *user.User, vt VerificationType, ttl time.Duration) (*VotingAccessToken, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}

	now := time.Now()
	token := &VotingAccessToken{
		PollID:           p.ID,
		UserID:           u.ID,
		VerificationType: vt,
		IssuedAt:         now,
		ExpiresAt:        now.Add(ttl),
	}

	if err := s.repo.ReplaceAccessToken(token); err != nil {
		s.logger.Error("failed to replace access token", "error", err, "poll_id", p.ID, "user_id", u.ID)
		return nil, err
	}

	s.logger.Info("voting access token issued",
		"poll_id", p.ID,
		"user_id", u.ID,
		"verification_type", vt,
		"expires_at", token.ExpiresAt)

	return token, nil
}

// IssueRemoteAccessToken issues a remote-channel token; rejected for polls that
// only accept on-premise verification.
func (s *Service) IssueRemoteAccessToken(p *poll.Poll, u *user.User) (*VotingAccessToken, error) {
	if !p.VotingAccessMode.SupportsRemote() {
		return nil, internal.NewInvalidOperationError(
			"cannot issue a remote access token for an on-premise-only poll",
			internal.ErrCodeUnsupportedMode)
	}
	return s.IssueVotingAccessToken(p, u, VerificationRemote, 0)
}

// CheckVotingEligibility is the policy decision table keyed on the poll's
// voting access mode. Addressability and poll activity are checked before the
// mode switch, in that order, for every mode; remote_only gets no shortcut.
func (s *Service) CheckVotingEligibility(p *poll.Poll, u *user.User) (*EligibilityDecision, error) {
	votable, err := s.polls.CanBeVotedOnBy(p, u)
	if err != nil {
		return nil, err
	}
	if !votable {
		return &EligibilityDecision{CanVote: false, Reason: MsgPollNotVotable}, nil
	}

	if !p.IsActiveNow() {
		return &EligibilityDecision{CanVote: false, Reason: MsgPollNotActive}, nil
	}

	switch p.VotingAccessMode {
	case poll.AccessModeRemoteOnly:
		return &EligibilityDecision{CanVote: true, VerificationType: VerificationRemote}, nil

	case poll.AccessModeOnPremiseOnly:
		token, err := s.repo.GetAccessToken(p.ID, u.ID)
		if err != nil {
			return nil, err
		}
		if token != nil && token.IsValid() && token.VerificationType == VerificationOnPremise {
			return &EligibilityDecision{CanVote: true, VerificationType: VerificationOnPremise}, nil
		}
		return &EligibilityDecision{CanVote: false, Reason: MsgOnSiteRequired}, nil

	default: // hybrid: on-premise when verified, remote as the unconditional fallback
		token, err := s.repo.GetAccessToken(p.ID, u.ID)
		if err != nil {
			return nil, err
		}
		if token != nil && token.IsValid() && token.VerificationType == VerificationOnPremise {
			return &EligibilityDecision{CanVote: true, VerificationType: VerificationOnPremise}, nil
		}
		return &EligibilityDecision{CanVote: true, VerificationType: VerificationRemote}, nil
	}
}

// GetUserVerificationStatus projects current token state and poll capability
// flags. Read-only; no side effects.
func (s *Service) GetUserVerificationStatus(p *poll.Poll, u *user.User) (*VerificationStatus, error) {
	status := &VerificationStatus{
		PollID:            p.ID,
		UserID:            u.ID,
		AccessMode:        p.VotingAccessMode,
		SupportsRemote:    p.VotingAccessMode.SupportsRemote(),
		SupportsOnPremise: p.VotingAccessMode.SupportsOnPremise(),
	}

	accessToken, err := s.repo.GetAccessToken(p.ID, u.ID)
	if err != nil {
		return nil, err
	}
	if accessToken != nil && accessToken.IsValid() {
		status.HasValidAccessToken = true
		status.VerificationType = accessToken.VerificationType
		expiresAt := accessToken.ExpiresAt
		status.AccessTokenExpiresAt = &expiresAt
	}

	qrToken, err := s.repo.GetActiveQrToken(p.ID)
	if err != nil {
		return nil, err
	}
	if qrToken != nil && qrToken.IsScannable() {
		status.QrTokenActive = true
		expiresAt := qrToken.ExpiresAt
		status.QrTokenExpiresAt = &expiresAt
	}

	status.EligibleWithoutAction = status.HasValidAccessToken || p.VotingAccessMode.SupportsRemote()
	return status, nil
}
