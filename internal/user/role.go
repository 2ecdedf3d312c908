package user

// Role is a closed, ordered privilege hierarchy. A higher rank is a strict
// superset of capability. Behavior hangs off exhaustive switches rather than a
// type hierarchy.
type Role string

const (
	RoleUser             Role = "user"
	RoleAdmin            Role = "admin"
	RoleClientSuperAdmin Role = "client_super_admin"
	RoleSuperAdmin       Role = "super_admin"
)

// Rank orders roles by privilege. Unknown roles rank below everything.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleClientSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleClientSuperAdmin:
		return "Client Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleUser:
		return "User"
	default:
		return string(r)
	}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleClientSuperAdmin, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// Protected reports whether the role is exempt from the permission-driven
// auto-sync: super admin ranks are assigned manually and never auto-mutated.
func (r Role) Protected() bool {
	return r == RoleSuperAdmin || r == RoleClientSuperAdmin
}

func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}
