package department

import (
	"time"
)

// Department groups users inside one tenant. Slug is unique per organization,
// not globally.
type Department struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"column:name;not null"`
	Slug           string    `json:"slug" gorm:"column:slug;not null;uniqueIndex:idx_departments_org_slug"`
	OrganizationID int64     `json:"organization_id" gorm:"column:organization_id;not null;uniqueIndex:idx_departments_org_slug"`
	IsDefault      bool      `json:"is_default" gorm:"column:is_default;default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

// UserDepartment is the many-to-many membership pivot.
type UserDepartment struct {
	UserID       int64     `json:"user_id" gorm:"column:user_id;primaryKey"`
	DepartmentID int64     `json:"department_id" gorm:"column:department_id;primaryKey"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
}

func (UserDepartment) TableName() string {
	return "user_departments"
}
