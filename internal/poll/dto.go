package poll

import (
	"errors"
	"time"
)

// CreatePollDTO represents the request payload for creating a poll
type CreatePollDTO struct {
	Question         string            `json:"question" validate:"required,min=1,max=500"`
	Description      string            `json:"description,omitempty"`
	Type             Type              `json:"type,omitempty"`
	PollType         PollType          `json:"poll_type,omitempty"`
	Visibility       Visibility        `json:"visibility,omitempty"`
	VotingAccessMode AccessMode        `json:"voting_access_mode,omitempty"`
	StartAt          *time.Time        `json:"start_at,omitempty"`
	EndAt            *time.Time        `json:"end_at,omitempty"`
	Options          []CreateOptionDTO `json:"options" validate:"required,min=2"`
}

type CreateOptionDTO struct {
	Text     string  `json:"text" validate:"required"`
	Name     *string `json:"name,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Validate validates the CreatePollDTO
func (dto CreatePollDTO) Validate() error {
	if dto.Question == "" {
		return errors.New("question is required")
	}
	if len(dto.Question) > 500 {
		return errors.New("question must be less than 500 characters")
	}
	if len(dto.Options) < 2 {
		return errors.New("a poll requires at least two options")
	}
	for _, opt := range dto.Options {
		if opt.Text == "" {
			return errors.New("option text is required")
		}
	}
	if dto.StartAt != nil && dto.EndAt != nil && !dto.EndAt.After(*dto.StartAt) {
		return errors.New("end_at must be after start_at")
	}
	return nil
}

func (dto CreatePollDTO) ToPoll(createdBy int64, organizationID *int64) *Poll {
	now := time.Now()

	p := &Poll{
		Question:         dto.Question,
		Description:      dto.Description,
		Type:             dto.Type,
		PollType:         dto.PollType,
		Status:           StatusScheduled,
		Visibility:       dto.Visibility,
		VotingAccessMode: dto.VotingAccessMode,
		StartAt:          dto.StartAt,
		EndAt:            dto.EndAt,
		OrganizationID:   organizationID,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if p.Type == "" {
		p.Type = TypeOpen
	}
	if p.PollType == "" {
		p.PollType = PollTypeStandard
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if p.VotingAccessMode == "" {
		p.VotingAccessMode = AccessModeHybrid
	}

	for i, opt := range dto.Options {
		p.Options = append(p.Options, Option{
			Text:      opt.Text,
			SortOrder: i,
			Name:      opt.Name,
			ImageURL:  opt.ImageURL,
			CreatedAt: now,
		})
	}

	return p
}

// InviteUsersDTO represents the request for direct invitations
type InviteUsersDTO struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
}

func (dto InviteUsersDTO) Validate() error {
	if len(dto.UserIDs) == 0 {
		return errors.New("user_ids is required")
	}
	return nil
}

// InviteDepartmentsDTO represents the request for department invitations
type InviteDepartmentsDTO struct {
	DepartmentIDs []int64 `json:"department_ids" validate:"required,min=1"`
}

func (dto InviteDepartmentsDTO) Validate() error {
	if len(dto.DepartmentIDs) == 0 {
		return errors.New("department_ids is required")
	}
	return nil
}
