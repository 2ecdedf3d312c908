package auth

import "context"

// Permission names the poll platform guards routes with. The seeded catalogue
// must stay in sync with these.
const (
	PermManagePolls       = "manage_polls"
	PermManagePermissions = "manage_permissions"
	PermManageDepartments = "manage_departments"
	PermInviteVoters      = "invite_voters"
	PermAssignProxies     = "assign_proxies"
	PermViewResults       = "view_results"
)

type PermissionChecker interface {
	CanManagePolls(userPermissions []string) bool
	CanManagePermissions(userPermissions []string) bool
	CanManageDepartments(userPermissions []string) bool
	CanInviteVoters(userPermissions []string) bool
	CanAssignProxies(userPermissions []string) bool
	CanViewResults(userPermissions []string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error) {
	return c.HasAnyPermission(userPermissions, []string{permission}), nil
}

func (c *DefaultPermissionChecker) CanManagePolls(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermManagePolls})
}

func (c *DefaultPermissionChecker) CanManagePermissions(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermManagePermissions})
}

func (c *DefaultPermissionChecker) CanManageDepartments(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermManageDepartments})
}

func (c *DefaultPermissionChecker) CanInviteVoters(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermInviteVoters, PermManagePolls})
}

func (c *DefaultPermissionChecker) CanAssignProxies(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermAssignProxies, PermManagePolls})
}

func (c *DefaultPermissionChecker) CanViewResults(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermViewResults, PermManagePolls})
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}
