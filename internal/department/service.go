package department

import (
	"log/slog"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/user"
)

type Repository interface {
	GetByID(id int64) (*Department, error)
	ListByOrganization(orgID int64) ([]*Department, error)
	AddMember(departmentID, userID int64) error
	RemoveMember(departmentID, userID int64) error
	ListUserDepartmentIDs(userID int64) ([]int64, error)
	ListMembers(departmentID int64) ([]*user.User, error)
}

// Service maintains the user<->department membership index feeding poll
// invitation resolution.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(id int64) (*Department, error) {
	dept, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrDepartmentNotFound
	}
	return dept, nil
}

func (s *Service) ListByOrganization(orgID int64) ([]*Department, error) {
	return s.repo.ListByOrganization(orgID)
}

// AddMember is idempotent: adding an existing member is a no-op.
func (s *Service) AddMember(departmentID, userID int64) error {
	if _, err := s.repo.GetByID(departmentID); err != nil {
		return internal.ErrDepartmentNotFound
	}
	if err := s.repo.AddMember(departmentID, userID); err != nil {
		s.logger.Error("failed to add department member", "error", err, "department_id", departmentID, "user_id", userID)
		return err
	}
	return nil
}

// RemoveMember is idempotent: removing a non-member is a no-op.
func (s *Service) RemoveMember(departmentID, userID int64) error {
	if err := s.repo.RemoveMember(departmentID, userID); err != nil {
		s.logger.Error("failed to remove department member", "error", err, "department_id", departmentID, "user_id", userID)
		return err
	}
	return nil
}

func (s *Service) ListUserDepartmentIDs(userID int64) ([]int64, error) {
	return s.repo.ListUserDepartmentIDs(userID)
}

func (s *Service) ListMembers(departmentID int64) ([]*user.User, error) {
	return s.repo.ListMembers(departmentID)
}
