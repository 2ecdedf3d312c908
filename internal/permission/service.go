package permission

import (
	"log/slog"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/user"
)

// Repository defines the data access methods for the permission engine.
// Mutations on pivots must be all-or-nothing per call.
type Repository interface {
	GetUserByID(userID int64) (*user.User, error)
	UpdateUserRole(userID int64, role user.Role) error

	ListAllPermissionNames() ([]string, error)
	ListGroupPermissionNames(userID int64) ([]string, error)
	ListDirectPermissions(userID int64) ([]DirectPermission, error)

	GetPermissionByID(id int64) (*Permission, error)
	CountGroupsByIDs(ids []int64) (int64, error)
	ReplaceUserGroups(userID int64, groupIDs []int64) error
	UpsertDirectPermission(userID, permissionID int64, granted bool) error
}

// Service resolves effective permission sets and applies the role auto-sync
// invariant after every pivot mutation.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EffectivePermissions returns the user's derived permission set: everything
// for super admins, otherwise group union plus direct grants minus direct
// revokes.
func (s *Service) EffectivePermissions(u *user.User) ([]string, error) {
	if u.IsSuperAdmin() {
		return s.repo.ListAllPermissionNames()
	}

	groupPerms, err := s.repo.ListGroupPermissionNames(u.ID)
	if err != nil {
		s.logger.Error("failed to load group permissions", "error", err, "user_id", u.ID)
		return nil, err
	}

	direct, err := s.repo.ListDirectPermissions(u.ID)
	if err != nil {
		s.logger.Error("failed to load direct permissions", "error", err, "user_id", u.ID)
		return nil, err
	}

	grants, revokes := SplitDirect(direct)
	return EffectiveSet(groupPerms, grants, revokes), nil
}

// GetUserEffectivePermissions resolves the effective set for a user id.
func (s *Service) GetUserEffectivePermissions(userID int64) ([]string, error) {
	u, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return s.EffectivePermissions(u)
}

func (s *Service) HasPermission(u *user.User, name string) (bool, error) {
	if u.IsSuperAdmin() {
		return true, nil
	}
	perms, err := s.EffectivePermissions(u)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) HasAnyPermission(u *user.User, names []string) (bool, error) {
	if u.IsSuperAdmin() {
		return true, nil
	}
	perms, err := s.EffectivePermissions(u)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		for _, name := range names {
			if p == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Service) HasAllPermissions(u *user.User, names []string) (bool, error) {
	if u.IsSuperAdmin() {
		return true, nil
	}
	perms, err := s.EffectivePermissions(u)
	if err != nil {
		return false, err
	}
	have := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		have[p] = struct{}{}
	}
	for _, name := range names {
		if _, ok := have[name]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// AssignPermissionGroups replaces the user's group assignments, then re-syncs
// the role. Returns the resulting effective set for UI refresh.
func (s *Service) AssignPermissionGroups(userID int64, groupIDs []int64) ([]string, error) {
	u, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if len(groupIDs) > 0 {
		count, err := s.repo.CountGroupsByIDs(groupIDs)
		if err != nil {
			return nil, err
		}
		if count != int64(len(groupIDs)) {
			s.logger.Warn("assign groups rejected: unknown group id", "user_id", userID, "group_ids", groupIDs)
			return nil, internal.ErrGroupNotFound
		}
	}

	if err := s.repo.ReplaceUserGroups(userID, groupIDs); err != nil {
		s.logger.Error("failed to replace user groups", "error", err, "user_id", userID)
		return nil, err
	}

	return s.afterPermissionChange(u)
}

// GrantPermission records an explicit direct grant, then re-syncs the role.
func (s *Service) GrantPermission(userID, permissionID int64) ([]string, error) {
	return s.setDirectPermission(userID, permissionID, true)
}

// RevokePermission records an explicit direct revoke. The revoke dominates any
// group-derived grant of the same permission.
func (s *Service) RevokePermission(userID, permissionID int64) ([]string, error) {
	return s.setDirectPermission(userID, permissionID, false)
}

func (s *Service) setDirectPermission(userID, permissionID int64, granted bool) ([]string, error) {
	u, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if _, err := s.repo.GetPermissionByID(permissionID); err != nil {
		s.logger.Warn("direct permission change rejected: unknown permission", "user_id", userID, "permission_id", permissionID)
		return nil, internal.ErrPermissionNotFound
	}

	if err := s.repo.UpsertDirectPermission(userID, permissionID, granted); err != nil {
		s.logger.Error("failed to upsert direct permission", "error", err, "user_id", userID, "permission_id", permissionID)
		return nil, err
	}

	return s.afterPermissionChange(u)
}

// afterPermissionChange recomputes the effective set and applies the role
// auto-sync: USER with any permission becomes ADMIN, ADMIN with none becomes
// USER. Super admin ranks are never touched.
func (s *Service) afterPermissionChange(u *user.User) ([]string, error) {
	perms, err := s.EffectivePermissions(u)
	if err != nil {
		return nil, err
	}

	if u.Role.Protected() {
		return perms, nil
	}

	var target user.Role
	switch {
	case u.Role == user.RoleUser && len(perms) > 0:
		target = user.RoleAdmin
	case u.Role == user.RoleAdmin && len(perms) == 0:
		target = user.RoleUser
	default:
		return perms, nil
	}

	if err := s.repo.UpdateUserRole(u.ID, target); err != nil {
		s.logger.Error("role sync failed", "error", err, "user_id", u.ID, "target_role", target)
		return nil, err
	}

	s.logger.Info("role synced after permission change",
		"user_id", u.ID,
		"previous_role", u.Role,
		"new_role", target,
		"effective_permissions", len(perms))

	u.Role = target
	return perms, nil
}
