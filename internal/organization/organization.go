package organization

import (
	"time"
)

// Organization is the tenant anchor. A nil organization on a poll or user means
// system scope, not a missing row.
type Organization struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"column:name;not null"`
	Slug      string    `json:"slug" gorm:"column:slug;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}
