package postgres

import (
	"time"

	"github.com/smuchara/pollstack/internal/poll"
	"github.com/smuchara/pollstack/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollRepository implements the poll.Repository interface using GORM
type PollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) poll.Repository {
	return &PollRepository{db: db}
}

// Create saves the poll together with its options in one transaction.
func (r *PollRepository) Create(p *poll.Poll) error {
	return r.db.Create(p).Error
}

func (r *PollRepository) GetByID(id int64) (*poll.Poll, error) {
	var p poll.Poll
	err := r.db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PollRepository) UpdateStatus(id int64, status poll.Status) error {
	return r.db.Model(&poll.Poll{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *PollRepository) GetOption(pollID, optionID int64) (*poll.Option, error) {
	var opt poll.Option
	err := r.db.Where("id = ? AND poll_id = ?", optionID, pollID).First(&opt).Error
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

func (r *PollRepository) ListOptions(pollID int64) ([]*poll.Option, error) {
	var opts []*poll.Option
	err := r.db.Where("poll_id = ?", pollID).
		Order("sort_order ASC").
		Find(&opts).Error
	return opts, err
}

func (r *PollRepository) InviteUser(pollID, userID, invitedBy int64) error {
	row := poll.Invitation{
		PollID:    pollID,
		UserID:    userID,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *PollRepository) RevokeUserInvitation(pollID, userID int64) error {
	return r.db.Where("poll_id = ? AND user_id = ?", pollID, userID).
		Delete(&poll.Invitation{}).Error
}

func (r *PollRepository) InviteDepartment(pollID, departmentID, invitedBy int64) error {
	row := poll.DepartmentInvitation{
		PollID:       pollID,
		DepartmentID: departmentID,
		InvitedBy:    invitedBy,
		CreatedAt:    time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *PollRepository) RevokeDepartmentInvitation(pollID, departmentID int64) error {
	return r.db.Where("poll_id = ? AND department_id = ?", pollID, departmentID).
		Delete(&poll.DepartmentInvitation{}).Error
}

func (r *PollRepository) IsUserDirectlyInvited(pollID, userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&poll.Invitation{}).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PollRepository) IsAnyDepartmentInvited(pollID int64, departmentIDs []int64) (bool, error) {
	var count int64
	err := r.db.Model(&poll.DepartmentInvitation{}).
		Where("poll_id = ? AND department_id IN ?", pollID, departmentIDs).
		Count(&count).Error
	return count > 0, err
}

// ListInvitedUsers unions directly invited users with members of invited
// departments, deduplicated by user id at the database.
func (r *PollRepository) ListInvitedUsers(pollID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.
		Distinct("users.*").
		Joins("LEFT JOIN poll_invitations pi ON pi.user_id = users.id AND pi.poll_id = ?", pollID).
		Joins("LEFT JOIN user_departments ud ON ud.user_id = users.id").
		Joins("LEFT JOIN poll_department_invitations pdi ON pdi.department_id = ud.department_id AND pdi.poll_id = ?", pollID).
		Where("pi.poll_id IS NOT NULL OR pdi.poll_id IS NOT NULL").
		Find(&users).Error
	return users, err
}
