package poll

import (
	"time"

	"github.com/smuchara/pollstack/internal/user"
	"gorm.io/gorm"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusArchived  Status = "archived"
)

func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusActive:
		return "Active"
	case StatusEnded:
		return "Ended"
	case StatusArchived:
		return "Archived"
	default:
		return string(s)
	}
}

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityInviteOnly Visibility = "invite_only"
)

type Type string

const (
	TypeOpen   Type = "open"
	TypeClosed Type = "closed"
)

type PollType string

const (
	PollTypeStandard PollType = "standard"
	PollTypeProfile  PollType = "profile"
)

// AccessMode declares which verification channels a poll accepts.
type AccessMode string

const (
	AccessModeRemoteOnly    AccessMode = "remote_only"
	AccessModeOnPremiseOnly AccessMode = "on_premise_only"
	AccessModeHybrid        AccessMode = "hybrid"
)

func (m AccessMode) SupportsRemote() bool {
	switch m {
	case AccessModeRemoteOnly, AccessModeHybrid:
		return true
	default:
		return false
	}
}

func (m AccessMode) SupportsOnPremise() bool {
	switch m {
	case AccessModeOnPremiseOnly, AccessModeHybrid:
		return true
	default:
		return false
	}
}

func (m AccessMode) Label() string {
	switch m {
	case AccessModeRemoteOnly:
		return "Remote only"
	case AccessModeOnPremiseOnly:
		return "On-premise only"
	case AccessModeHybrid:
		return "Hybrid"
	default:
		return string(m)
	}
}

// Poll is the votable entity. OrganizationID is nil for system-wide polls.
type Poll struct {
	ID               int64          `json:"id" gorm:"primaryKey"`
	Question         string         `json:"question" gorm:"column:question;not null"`
	Description      string         `json:"description" gorm:"column:description"`
	Type             Type           `json:"type" gorm:"column:type;default:open"`
	PollType         PollType       `json:"poll_type" gorm:"column:poll_type;default:standard"`
	Status           Status         `json:"status" gorm:"column:status;default:scheduled"`
	Visibility       Visibility     `json:"visibility" gorm:"column:visibility;default:public"`
	VotingAccessMode AccessMode     `json:"voting_access_mode" gorm:"column:voting_access_mode;default:hybrid"`
	StartAt          *time.Time     `json:"start_at,omitempty" gorm:"column:start_at"`
	EndAt            *time.Time     `json:"end_at,omitempty" gorm:"column:end_at"`
	OrganizationID   *int64         `json:"organization_id,omitempty" gorm:"column:organization_id"`
	CreatedBy        int64          `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:PollID"`
}

func (Poll) TableName() string {
	return "polls"
}

// IsActiveNow requires active status and the current time inside the optional
// [start_at, end_at) window. Status is never auto-mutated when the window
// lapses; the check is lazy, like token expiry.
func (p *Poll) IsActiveNow() bool {
	if p.Status != StatusActive {
		return false
	}
	now := time.Now()
	if p.StartAt != nil && now.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && !now.Before(*p.EndAt) {
		return false
	}
	return true
}

func (p *Poll) IsSystemPoll() bool {
	return p.OrganizationID == nil
}

func (p *Poll) IsInviteOnly() bool {
	return p.Visibility == VisibilityInviteOnly
}

func (p *Poll) Activate() {
	p.Status = StatusActive
	p.UpdatedAt = time.Now()
}

func (p *Poll) End() {
	p.Status = StatusEnded
	p.UpdatedAt = time.Now()
}

func (p *Poll) Archive() {
	p.Status = StatusArchived
	p.UpdatedAt = time.Now()
}

// InTenantScope implements the cross-cutting tenant rule, evaluated before any
// other eligibility check. System polls belong to system-level actors only;
// super admins may join system polls but are always excluded from tenant
// elections, whatever their other attributes.
func InTenantScope(p *Poll, u *user.User) bool {
	if p.IsSystemPoll() {
		return u.IsSystemActor()
	}
	if u.IsSuperAdmin() {
		return false
	}
	return u.BelongsToOrganization(*p.OrganizationID)
}

// Option is one votable choice. Name and ImageURL carry the profile-poll
// candidate variant.
type Option struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	PollID    int64     `json:"poll_id" gorm:"column:poll_id;not null;index"`
	Text      string    `json:"text" gorm:"column:text;not null"`
	SortOrder int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	Name      *string   `json:"name,omitempty" gorm:"column:name"`
	ImageURL  *string   `json:"image_url,omitempty" gorm:"column:image_url"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Option) TableName() string {
	return "poll_options"
}

// Invitation records a direct user invite.
type Invitation struct {
	PollID    int64     `json:"poll_id" gorm:"column:poll_id;primaryKey"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;primaryKey"`
	InvitedBy int64     `json:"invited_by" gorm:"column:invited_by;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Invitation) TableName() string {
	return "poll_invitations"
}

// DepartmentInvitation invites every member of a department.
type DepartmentInvitation struct {
	PollID       int64     `json:"poll_id" gorm:"column:poll_id;primaryKey"`
	DepartmentID int64     `json:"department_id" gorm:"column:department_id;primaryKey"`
	InvitedBy    int64     `json:"invited_by" gorm:"column:invited_by;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
}

func (DepartmentInvitation) TableName() string {
	return "poll_department_invitations"
}
