package user

import (
	"time"
)

// User is the voting identity. OrganizationID is nil only for system-level
// actors (super admins and global voters); every tenant-scoped decision keys off
// this field.
type User struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"column:name;not null"`
	Email          string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"column:password_hash;not null"`
	Role           Role      `json:"role" gorm:"column:role;default:user"`
	OrganizationID *int64    `json:"organization_id,omitempty" gorm:"column:organization_id"`
	IsActive       bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u *User) IsClientSuperAdmin() bool {
	return u.Role == RoleClientSuperAdmin
}

func (u *User) BelongsToOrganization(orgID int64) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}

// IsSystemActor reports whether the user lives outside any tenant.
func (u *User) IsSystemActor() bool {
	return u.OrganizationID == nil
}
