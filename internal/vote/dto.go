package vote

import (
	"github.com/smuchara/pollstack/internal"
)

// CastVoteDTO represents the vote-cast request payload. OnBehalfOf names the
// principal when a proxy is casting for someone else.
type CastVoteDTO struct {
	PollID     int64  `json:"poll_id" validate:"required"`
	OptionID   int64  `json:"option_id" validate:"required"`
	OnBehalfOf *int64 `json:"on_behalf_of,omitempty"`
}

// Validate validates the CastVoteDTO, reporting failures keyed by field.
func (dto CastVoteDTO) Validate() error {
	if dto.PollID <= 0 {
		return internal.NewValidationFieldError("poll", "poll is required", internal.ErrCodeValidationFailed)
	}
	if dto.OptionID <= 0 {
		return internal.NewValidationFieldError("option", "option is required", internal.ErrCodeValidationFailed)
	}
	if dto.OnBehalfOf != nil && *dto.OnBehalfOf <= 0 {
		return internal.NewValidationFieldError("on_behalf_of", "on_behalf_of must reference a user", internal.ErrCodeValidationFailed)
	}
	return nil
}

// AssignProxyDTO represents the request to authorize a proxy voter.
type AssignProxyDTO struct {
	UserID      int64 `json:"user_id" validate:"required"`
	ProxyUserID int64 `json:"proxy_user_id" validate:"required"`
}

func (dto AssignProxyDTO) Validate() error {
	if dto.UserID <= 0 {
		return internal.NewValidationFieldError("user_id", "user_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.ProxyUserID <= 0 {
		return internal.NewValidationFieldError("proxy_user_id", "proxy_user_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.UserID == dto.ProxyUserID {
		return internal.NewValidationFieldError("proxy_user_id", "a user cannot be their own proxy", internal.ErrCodeInvalidProxy)
	}
	return nil
}
