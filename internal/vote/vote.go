package vote

import (
	"errors"
	"time"

	"github.com/smuchara/pollstack/internal/presence"
)

// Vote is one principal's choice in one poll. UserID is always the principal
// whose vote this is; ProxyUserID records who physically cast it when the two
// differ. The (poll_id, user_id) unique index is the final arbiter against
// double voting; the application pre-check is an optimization only.
type Vote struct {
	ID               int64                     `json:"id" gorm:"primaryKey"`
	PollID           int64                     `json:"poll_id" gorm:"column:poll_id;not null;uniqueIndex:idx_votes_poll_user"`
	PollOptionID     int64                     `json:"poll_option_id" gorm:"column:poll_option_id;not null"`
	UserID           int64                     `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_votes_poll_user"`
	ProxyUserID      *int64                    `json:"proxy_user_id,omitempty" gorm:"column:proxy_user_id"`
	IPAddress        string                    `json:"ip_address" gorm:"column:ip_address"`
	VerificationType presence.VerificationType `json:"verification_type" gorm:"column:verification_type;not null"`
	CreatedAt        time.Time                 `json:"created_at" gorm:"column:created_at"`
}

func (Vote) TableName() string {
	return "votes"
}

func (v *Vote) WasCastByProxy() bool {
	return v.ProxyUserID != nil
}

// PollProxy authorizes ProxyUserID to cast a vote on behalf of UserID (the
// principal) in one poll. One proxy per (poll, principal).
type PollProxy struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	PollID      int64     `json:"poll_id" gorm:"column:poll_id;not null;uniqueIndex:idx_poll_proxies_poll_user"`
	UserID      int64     `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_poll_proxies_poll_user"`
	ProxyUserID int64     `json:"proxy_user_id" gorm:"column:proxy_user_id;not null"`
	CreatedBy   int64     `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (PollProxy) TableName() string {
	return "poll_proxies"
}

// OptionCount is one row of the per-option tally.
type OptionCount struct {
	PollOptionID int64  `json:"poll_option_id"`
	OptionText   string `json:"option_text"`
	Count        int64  `json:"count"`
}

// ErrDuplicateVote surfaces the storage unique-index violation on
// (poll_id, user_id). Repositories translate driver-specific errors into this
// sentinel; it never escapes the service layer raw.
var ErrDuplicateVote = errors.New("duplicate vote for poll and user")
