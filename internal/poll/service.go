package poll

import (
	"context"
	"log/slog"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/user"
)

// Repository defines the data access methods for polls and invitations.
// Invitation writes must tolerate duplicates (insert-if-absent) so service
// calls stay idempotent.
type Repository interface {
	Create(p *Poll) error
	GetByID(id int64) (*Poll, error)
	UpdateStatus(id int64, status Status) error
	GetOption(pollID, optionID int64) (*Option, error)
	ListOptions(pollID int64) ([]*Option, error)

	InviteUser(pollID, userID, invitedBy int64) error
	RevokeUserInvitation(pollID, userID int64) error
	InviteDepartment(pollID, departmentID, invitedBy int64) error
	RevokeDepartmentInvitation(pollID, departmentID int64) error
	IsUserDirectlyInvited(pollID, userID int64) (bool, error)
	IsAnyDepartmentInvited(pollID int64, departmentIDs []int64) (bool, error)
	ListInvitedUsers(pollID int64) ([]*user.User, error)
}

// MembershipIndex is the slice of the department service the resolver needs.
type MembershipIndex interface {
	ListUserDepartmentIDs(userID int64) ([]int64, error)
}

// Service resolves poll visibility and manages invitations.
type Service struct {
	repo        Repository
	memberships MembershipIndex
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(repo Repository, memberships MembershipIndex, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		bus:         bus,
		logger:      logger,
	}
}

func (s *Service) GetByID(id int64) (*Poll, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrPollNotFound
	}
	return p, nil
}

// CreatePoll persists a poll with its options. A poll needs at least two
// choices to be votable.
func (s *Service) CreatePoll(dto CreatePollDTO, createdBy int64, organizationID *int64) (*Poll, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("poll validation failed", "error", err, "created_by", createdBy)
		return nil, err
	}

	p := dto.ToPoll(createdBy, organizationID)
	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create poll", "error", err, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("poll created",
		"poll_id", p.ID,
		"visibility", p.Visibility,
		"voting_access_mode", p.VotingAccessMode,
		"organization_id", p.OrganizationID)

	return p, nil
}

func (s *Service) UpdateStatus(pollID int64, status Status, changedBy int64) error {
	p, err := s.repo.GetByID(pollID)
	if err != nil {
		return internal.ErrPollNotFound
	}

	oldStatus := p.Status
	if err := s.repo.UpdateStatus(pollID, status); err != nil {
		return err
	}

	if s.bus != nil && oldStatus != status {
		// Fire-and-forget; notification delivery is an external concern.
		_ = s.bus.Publish(context.Background(), events.NewPollStatusChangedEvent(
			pollID, string(oldStatus), string(status), changedBy))
	}

	return nil
}

// IsUserInvited reports whether the user is directly invited or belongs to any
// invited department.
func (s *Service) IsUserInvited(p *Poll, u *user.User) (bool, error) {
	direct, err := s.repo.IsUserDirectlyInvited(p.ID, u.ID)
	if err != nil {
		return false, err
	}
	if direct {
		return true, nil
	}

	deptIDs, err := s.memberships.ListUserDepartmentIDs(u.ID)
	if err != nil {
		return false, err
	}
	if len(deptIDs) == 0 {
		return false, nil
	}

	return s.repo.IsAnyDepartmentInvited(p.ID, deptIDs)
}

// IsVisibleTo combines the tenant rule with visibility: public polls are open
// to anyone in scope, invite-only polls additionally require an invitation.
func (s *Service) IsVisibleTo(p *Poll, u *user.User) (bool, error) {
	if !InTenantScope(p, u) {
		return false, nil
	}
	if !p.IsInviteOnly() {
		return true, nil
	}
	return s.IsUserInvited(p, u)
}

// CanBeVotedOnBy is the addressability gate used by the presence and vote
// engines: tenant scope first, then visibility. Lifecycle and verification are
// checked by the callers, in their own order.
func (s *Service) CanBeVotedOnBy(p *Poll, u *user.User) (bool, error) {
	return s.IsVisibleTo(p, u)
}

// GetAllInvitedUsers materializes the derived invited set: directly invited
// users unioned with members of invited departments, deduplicated by user id.
// Recomputed on demand; never cached on the user.
func (s *Service) GetAllInvitedUsers(p *Poll) ([]*user.User, error) {
	return s.repo.ListInvitedUsers(p.ID)
}

// InviteUsers adds direct invitations. Inviting an already-invited user is a
// no-op, not an error.
func (s *Service) InviteUsers(p *Poll, userIDs []int64, invitedBy int64) error {
	for _, userID := range userIDs {
		if err := s.repo.InviteUser(p.ID, userID, invitedBy); err != nil {
			s.logger.Error("failed to invite user", "error", err, "poll_id", p.ID, "user_id", userID)
			return err
		}
	}
	s.logger.Info("users invited to poll", "poll_id", p.ID, "count", len(userIDs), "invited_by", invitedBy)
	return nil
}

// RevokeUserInvitations removes direct invitations; revoking a non-invited
// user is a no-op.
func (s *Service) RevokeUserInvitations(p *Poll, userIDs []int64) error {
	for _, userID := range userIDs {
		if err := s.repo.RevokeUserInvitation(p.ID, userID); err != nil {
			s.logger.Error("failed to revoke invitation", "error", err, "poll_id", p.ID, "user_id", userID)
			return err
		}
	}
	return nil
}

// InviteDepartments adds department-mediated invitations, idempotently.
func (s *Service) InviteDepartments(p *Poll, departmentIDs []int64, invitedBy int64) error {
	for _, deptID := range departmentIDs {
		if err := s.repo.InviteDepartment(p.ID, deptID, invitedBy); err != nil {
			s.logger.Error("failed to invite department", "error", err, "poll_id", p.ID, "department_id", deptID)
			return err
		}
	}
	s.logger.Info("departments invited to poll", "poll_id", p.ID, "count", len(departmentIDs), "invited_by", invitedBy)
	return nil
}

func (s *Service) RevokeDepartmentInvitations(p *Poll, departmentIDs []int64) error {
	for _, deptID := range departmentIDs {
		if err := s.repo.RevokeDepartmentInvitation(p.ID, deptID); err != nil {
			s.logger.Error("failed to revoke department invitation", "error", err, "poll_id", p.ID, "department_id", deptID)
			return err
		}
	}
	return nil
}

// GetOption returns the option if it belongs to the poll.
func (s *Service) GetOption(pollID, optionID int64) (*Option, error) {
	opt, err := s.repo.GetOption(pollID, optionID)
	if err != nil {
		return nil, internal.NewValidationFieldError("option", "Selected option does not belong to this poll", internal.ErrCodeInvalidOption)
	}
	return opt, nil
}

func (s *Service) ListOptions(pollID int64) ([]*Option, error) {
	return s.repo.ListOptions(pollID)
}
