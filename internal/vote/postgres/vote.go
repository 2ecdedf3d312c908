package postgres

import (
	"errors"
	"strings"

	"github.com/smuchara/pollstack/internal/vote"
	"gorm.io/gorm"
)

// VoteRepository implements vote.Repository using GORM
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) vote.Repository {
	return &VoteRepository{db: db}
}

// Create inserts the vote, relying on the (poll_id, user_id) unique index to
// reject duplicates. Driver-specific violation errors are translated to
// vote.ErrDuplicateVote so the service layer stays storage-agnostic.
func (r *VoteRepository) Create(v *vote.Vote) error {
	if err := r.db.Create(v).Error; err != nil {
		if isUniqueViolation(err) {
			return vote.ErrDuplicateVote
		}
		return err
	}
	return nil
}

func (r *VoteRepository) GetByPollAndUser(pollID, userID int64) (*vote.Vote, error) {
	var v vote.Vote
	err := r.db.Where("poll_id = ? AND user_id = ?", pollID, userID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *VoteRepository) CountByOption(pollID int64) ([]vote.OptionCount, error) {
	var counts []vote.OptionCount
	err := r.db.Model(&vote.Vote{}).
		Select("votes.poll_option_id, poll_options.text as option_text, COUNT(votes.id) as count").
		Joins("JOIN poll_options ON poll_options.id = votes.poll_option_id").
		Where("votes.poll_id = ?", pollID).
		Group("votes.poll_option_id, poll_options.text").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *VoteRepository) GetProxy(pollID, principalID int64) (*vote.PollProxy, error) {
	var proxy vote.PollProxy
	err := r.db.Where("poll_id = ? AND user_id = ?", pollID, principalID).First(&proxy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proxy, nil
}

func (r *VoteRepository) CreateProxy(p *vote.PollProxy) error {
	return r.db.Create(p).Error
}

func (r *VoteRepository) DeleteProxy(pollID, principalID int64) error {
	return r.db.Where("poll_id = ? AND user_id = ?", pollID, principalID).
		Delete(&vote.PollProxy{}).Error
}

// isUniqueViolation matches the postgres and sqlite unique-index errors; GORM
// only normalizes some drivers to ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
