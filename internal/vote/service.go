package vote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/presence"
	"github.com/smuchara/pollstack/internal/user"
)

// Repository defines the data access methods for votes and proxy assignments.
// Create must run so that the unique index on (poll_id, user_id) rejects the
// second of two racing inserts, surfaced as ErrDuplicateVote.
type Repository interface {
	Create(v *Vote) error
	GetByPollAndUser(pollID, userID int64) (*Vote, error)
	CountByOption(pollID int64) ([]OptionCount, error)

	GetProxy(pollID, principalID int64) (*PollProxy, error)
	CreateProxy(p *PollProxy) error
	DeleteProxy(pollID, principalID int64) error
}

// PollResolver is the slice of the poll service the engine consults.
type PollResolver interface {
	GetByID(id int64) (*poll.Poll, error)
	CanBeVotedOnBy(p *poll.Poll, u *user.User) (bool, error)
	GetOption(pollID, optionID int64) (*poll.Option, error)
}

// EligibilityChecker is the presence subsystem's policy decision.
type EligibilityChecker interface {
	CheckVotingEligibility(p *poll.Poll, u *user.User) (*presence.EligibilityDecision, error)
}

// UserDirectory resolves on_behalf_of principals.
type UserDirectory interface {
	GetUserByID(userID int64) (*user.User, error)
}

// Service is the cast-vote engine: it runs the guard chain for a (poll,
// principal) pair and records the vote under the storage uniqueness constraint.
type Service struct {
	repo        Repository
	polls       PollResolver
	eligibility EligibilityChecker
	users       UserDirectory
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(repo Repository, polls PollResolver, eligibility EligibilityChecker, users UserDirectory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		polls:       polls,
		eligibility: eligibility,
		users:       users,
		bus:         bus,
		logger:      logger,
	}
}

var errAlreadyVoted = internal.NewValidationFieldError(
	"poll", "This user has already voted in this poll.", internal.ErrCodeAlreadyVoted)

// CastVote runs the admission guards in order (tenant scope and visibility,
// poll lifecycle, proxy authority, uniqueness, verification mode) and inserts
// the vote only once all pass. The (poll_id, user_id) unique index remains the
// final arbiter under concurrency: a racing duplicate insert comes back as the
// "already voted" rejection, never a raw storage error.
func (s *Service) CastVote(dto CastVoteDTO, actor *user.User, ipAddress string) (*Vote, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.polls.GetByID(dto.PollID)
	if err != nil {
		return nil, internal.ErrPollNotFound
	}

	option, err := s.polls.GetOption(p.ID, dto.OptionID)
	if err != nil {
		return nil, err
	}

	principal, err := s.resolvePrincipal(dto, actor)
	if err != nil {
		return nil, err
	}

	votable, err := s.polls.CanBeVotedOnBy(p, principal)
	if err != nil {
		return nil, err
	}
	if !votable {
		s.logger.Warn("vote rejected: poll not votable by principal",
			"poll_id", p.ID, "principal_id", principal.ID, "actor_id", actor.ID)
		return nil, internal.NewValidationFieldError("poll", presence.MsgPollNotVotable, internal.ErrCodePollNotVotable)
	}

	if !p.IsActiveNow() {
		return nil, internal.NewValidationFieldError("poll", presence.MsgPollNotActive, internal.ErrCodePollNotActive)
	}

	var proxyUserID *int64
	if principal.ID != actor.ID {
		proxy, err := s.repo.GetProxy(p.ID, principal.ID)
		if err != nil {
			return nil, err
		}
		if proxy == nil || proxy.ProxyUserID != actor.ID {
			s.logger.Warn("vote rejected: missing proxy authority",
				"poll_id", p.ID, "principal_id", principal.ID, "actor_id", actor.ID)
			return nil, internal.NewValidationFieldError("on_behalf_of",
				"You are not authorized to vote on behalf of this user.", internal.ErrCodeInvalidProxy)
		}
		proxyUserID = &actor.ID
	}

	// Pre-check is an optimization only; the unique index decides races.
	existing, err := s.repo.GetByPollAndUser(p.ID, principal.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errAlreadyVoted
	}

	decision, err := s.eligibility.CheckVotingEligibility(p, principal)
	if err != nil {
		return nil, err
	}
	if !decision.CanVote {
		s.logger.Info("vote rejected by eligibility policy",
			"poll_id", p.ID, "principal_id", principal.ID, "reason", decision.Reason)
		return nil, internal.NewValidationFieldError("poll", decision.Reason, internal.ErrCodeVerificationUnmet)
	}

	v := &Vote{
		PollID:           p.ID,
		PollOptionID:     option.ID,
		UserID:           principal.ID,
		ProxyUserID:      proxyUserID,
		IPAddress:        ipAddress,
		VerificationType: decision.VerificationType,
		CreatedAt:        time.Now(),
	}

	if err := s.repo.Create(v); err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			return nil, errAlreadyVoted
		}
		s.logger.Error("failed to record vote", "error", err, "poll_id", p.ID, "principal_id", principal.ID)
		return nil, err
	}

	s.logger.Info("vote recorded",
		"poll_id", p.ID,
		"principal_id", principal.ID,
		"proxy_user_id", proxyUserID,
		"verification_type", decision.VerificationType)

	if s.bus != nil {
		// Fire-and-forget; notification delivery is an external concern.
		_ = s.bus.Publish(context.Background(), events.NewVoteCastEvent(
			v.PollID, v.PollOptionID, v.UserID, v.ProxyUserID, string(v.VerificationType)))
	}

	return v, nil
}

func (s *Service) resolvePrincipal(dto CastVoteDTO, actor *user.User) (*user.User, error) {
	if dto.OnBehalfOf == nil || *dto.OnBehalfOf == actor.ID {
		return actor, nil
	}
	principal, err := s.users.GetUserByID(*dto.OnBehalfOf)
	if err != nil {
		return nil, internal.NewValidationFieldError("on_behalf_of",
			"The user to vote on behalf of was not found.", internal.ErrCodeUserNotFound)
	}
	return principal, nil
}

// HasVoted reports whether the principal already holds a vote in the poll.
func (s *Service) HasVoted(pollID, userID int64) (bool, error) {
	existing, err := s.repo.GetByPollAndUser(pollID, userID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// AssignProxy authorizes a proxy voter for one principal in one poll. One
// proxy per (poll, principal); reassigning replaces the previous authority.
func (s *Service) AssignProxy(p *poll.Poll, dto AssignProxyDTO, createdBy int64) (*PollProxy, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByID(dto.UserID); err != nil {
		return nil, internal.ErrUserNotFound
	}
	if _, err := s.users.GetUserByID(dto.ProxyUserID); err != nil {
		return nil, internal.ErrUserNotFound
	}

	existing, err := s.repo.GetProxy(p.ID, dto.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.DeleteProxy(p.ID, dto.UserID); err != nil {
			return nil, err
		}
	}

	proxy := &PollProxy{
		PollID:      p.ID,
		UserID:      dto.UserID,
		ProxyUserID: dto.ProxyUserID,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateProxy(proxy); err != nil {
		s.logger.Error("failed to assign proxy", "error", err, "poll_id", p.ID, "principal_id", dto.UserID)
		return nil, err
	}

	s.logger.Info("proxy assigned", "poll_id", p.ID, "principal_id", dto.UserID, "proxy_user_id", dto.ProxyUserID)
	return proxy, nil
}

// RevokeProxy removes the proxy authority; revoking a non-existent assignment
// is a no-op.
func (s *Service) RevokeProxy(pollID, principalID int64) error {
	return s.repo.DeleteProxy(pollID, principalID)
}

// GetResults tallies votes per option.
func (s *Service) GetResults(pollID int64) ([]OptionCount, error) {
	if _, err := s.polls.GetByID(pollID); err != nil {
		return nil, internal.ErrPollNotFound
	}
	return s.repo.CountByOption(pollID)
}
