package permission

import (
	"time"
)

type Permission struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"column:name;uniqueIndex;not null"`
	Label       string    `json:"label" gorm:"column:label"`
	Category    string    `json:"category" gorm:"column:category"`
	Description string    `json:"description" gorm:"column:description"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// PermissionGroup bundles permissions. System groups are seeded and protected
// from deletion by the admin layer.
type PermissionGroup struct {
	ID          int64        `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"column:name;uniqueIndex;not null"`
	Label       string       `json:"label" gorm:"column:label"`
	Description string       `json:"description" gorm:"column:description"`
	IsSystem    bool         `json:"is_system" gorm:"column:is_system;default:false"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:permission_group_permissions"`
	CreatedAt   time.Time    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"column:updated_at"`
}

func (PermissionGroup) TableName() string {
	return "permission_groups"
}

// UserPermissionGroup assigns a group to a user.
type UserPermissionGroup struct {
	UserID            int64     `json:"user_id" gorm:"column:user_id;primaryKey"`
	PermissionGroupID int64     `json:"permission_group_id" gorm:"column:permission_group_id;primaryKey"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
}

func (UserPermissionGroup) TableName() string {
	return "user_permission_groups"
}

// UserPermission is a direct per-user override on top of group-derived
// permissions. Granted=true is an explicit grant, Granted=false an explicit
// revoke; a revoke beats any group grant of the same permission.
type UserPermission struct {
	UserID       int64     `json:"user_id" gorm:"column:user_id;primaryKey"`
	PermissionID int64     `json:"permission_id" gorm:"column:permission_id;primaryKey"`
	Granted      bool      `json:"granted" gorm:"column:granted;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// DirectPermission is a read projection of the user_permissions pivot.
type DirectPermission struct {
	Name    string
	Granted bool
}
