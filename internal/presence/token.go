package presence

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// VerificationType records which channel authorized a voter.
type VerificationType string

const (
	VerificationRemote    VerificationType = "remote"
	VerificationOnPremise VerificationType = "on_premise"
)

func (v VerificationType) Label() string {
	switch v {
	case VerificationRemote:
		return "Remote"
	case VerificationOnPremise:
		return "On-premise"
	default:
		return string(v)
	}
}

func (v VerificationType) IsValid() bool {
	switch v {
	case VerificationRemote, VerificationOnPremise:
		return true
	default:
		return false
	}
}

// PollQrToken is the ephemeral proof-of-presence token shown as a QR code at
// the voting site. At most one token per poll is active at any instant;
// rotation deactivates predecessors in the same transaction.
type PollQrToken struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	PollID    int64     `json:"poll_id" gorm:"column:poll_id;not null;index"`
	Token     string    `json:"token" gorm:"column:token;uniqueIndex;not null;size:64"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;not null"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (PollQrToken) TableName() string {
	return "poll_qr_tokens"
}

func (t *PollQrToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

func (t *PollQrToken) IsScannable() bool {
	return t.IsActive && !t.IsExpired()
}

// VotingAccessToken is the durable record of how a (poll, user) pair was
// authorized to vote. One row per pair; reissuing deletes the predecessor so
// issued_at/expires_at always reflect the newest issuance.
type VotingAccessToken struct {
	ID               int64            `json:"id" gorm:"primaryKey"`
	PollID           int64            `json:"poll_id" gorm:"column:poll_id;not null;uniqueIndex:idx_voting_access_poll_user"`
	UserID           int64            `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_voting_access_poll_user"`
	VerificationType VerificationType `json:"verification_type" gorm:"column:verification_type;not null"`
	IssuedAt         time.Time        `json:"issued_at" gorm:"column:issued_at;not null"`
	ExpiresAt        time.Time        `json:"expires_at" gorm:"column:expires_at;not null"`
	ConsumedAt       *time.Time       `json:"consumed_at,omitempty" gorm:"column:consumed_at"`
}

func (VotingAccessToken) TableName() string {
	return "voting_access_tokens"
}

func (t *VotingAccessToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsValid requires an unconsumed token with a future expiry. Expiry is checked
// lazily here; no background sweep is needed for correctness.
func (t *VotingAccessToken) IsValid() bool {
	return t.ConsumedAt == nil && !t.IsExpired()
}

// newTokenValue mints a 64-character random token value.
func newTokenValue() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
