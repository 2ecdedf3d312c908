package postgres

import (
	"errors"

	"github.com/smuchara/pollstack/internal/presence"
	"gorm.io/gorm"
)

// TokenRepository implements presence.Repository using GORM
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) presence.Repository {
	return &TokenRepository{db: db}
}

// RotateQrToken deactivates every active token for the poll and creates the
// replacement inside one transaction, so a concurrent reader never observes two
// active tokens for the same poll.
func (r *TokenRepository) RotateQrToken(t *presence.PollQrToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&presence.PollQrToken{}).
			Where("poll_id = ? AND is_active = ?", t.PollID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *TokenRepository) GetActiveQrToken(pollID int64) (*presence.PollQrToken, error) {
	var token presence.PollQrToken
	err := r.db.Where("poll_id = ? AND is_active = ?", pollID, true).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// FindScannableQrToken looks a token up by value, filtered to active rows. The
// expiry check happens in the domain model so clock handling stays in one place.
func (r *TokenRepository) FindScannableQrToken(value string) (*presence.PollQrToken, error) {
	var token presence.PollQrToken
	err := r.db.Where("token = ? AND is_active = ?", value, true).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// ReplaceAccessToken deletes any prior token for the (poll, user) pair and
// creates the fresh one transactionally. Delete-then-create, never an upsert:
// a concurrent eligibility check sees either the old token or the new one.
func (r *TokenRepository) ReplaceAccessToken(t *presence.VotingAccessToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ? AND user_id = ?", t.PollID, t.UserID).
			Delete(&presence.VotingAccessToken{}).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *TokenRepository) GetAccessToken(pollID, userID int64) (*presence.VotingAccessToken, error) {
	var token presence.VotingAccessToken
	err := r.db.Where("poll_id = ? AND user_id = ?", pollID, userID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}
