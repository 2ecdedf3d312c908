package postgres

import (
	"time"

	"github.com/smuchara/pollstack/internal/department"
	"github.com/smuchara/pollstack/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepartmentRepository implements department.Repository using GORM
type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.Repository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) GetByID(id int64) (*department.Department, error) {
	var dept department.Department
	err := r.db.Where("id = ?", id).First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *DepartmentRepository) ListByOrganization(orgID int64) ([]*department.Department, error) {
	var depts []*department.Department
	err := r.db.Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

// AddMember inserts the membership pivot, ignoring duplicates.
func (r *DepartmentRepository) AddMember(departmentID, userID int64) error {
	row := department.UserDepartment{
		UserID:       userID,
		DepartmentID: departmentID,
		CreatedAt:    time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *DepartmentRepository) RemoveMember(departmentID, userID int64) error {
	return r.db.Where("department_id = ? AND user_id = ?", departmentID, userID).
		Delete(&department.UserDepartment{}).Error
}

func (r *DepartmentRepository) ListUserDepartmentIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&department.UserDepartment{}).
		Where("user_id = ?", userID).
		Pluck("department_id", &ids).Error
	return ids, err
}

func (r *DepartmentRepository) ListMembers(departmentID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.
		Joins("JOIN user_departments ud ON ud.user_id = users.id").
		Where("ud.department_id = ?", departmentID).
		Find(&users).Error
	return users, err
}
