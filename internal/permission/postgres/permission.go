package postgres

import (
	"time"

	"github.com/smuchara/pollstack/internal/permission"
	"github.com/smuchara/pollstack/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionRepository implements permission.Repository using GORM
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.Repository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) GetUserByID(userID int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", userID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PermissionRepository) UpdateUserRole(userID int64, role user.Role) error {
	return r.db.Model(&user.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		}).Error
}

func (r *PermissionRepository) ListAllPermissionNames() ([]string, error) {
	var names []string
	err := r.db.Model(&permission.Permission{}).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

func (r *PermissionRepository) ListGroupPermissionNames(userID int64) ([]string, error) {
	var names []string
	err := r.db.Model(&permission.Permission{}).
		Distinct("permissions.name").
		Joins("JOIN permission_group_permissions pgp ON pgp.permission_id = permissions.id").
		Joins("JOIN user_permission_groups upg ON upg.permission_group_id = pgp.permission_group_id").
		Where("upg.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	return names, err
}

func (r *PermissionRepository) ListDirectPermissions(userID int64) ([]permission.DirectPermission, error) {
	var direct []permission.DirectPermission
	err := r.db.Model(&permission.UserPermission{}).
		Select("permissions.name AS name, user_permissions.granted AS granted").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Scan(&direct).Error
	return direct, err
}

func (r *PermissionRepository) GetPermissionByID(id int64) (*permission.Permission, error) {
	var perm permission.Permission
	err := r.db.Where("id = ?", id).First(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *PermissionRepository) CountGroupsByIDs(ids []int64) (int64, error) {
	var count int64
	err := r.db.Model(&permission.PermissionGroup{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return count, err
}

// ReplaceUserGroups swaps the user's group assignments in one transaction so a
// partial write never survives.
func (r *PermissionRepository) ReplaceUserGroups(userID int64, groupIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&permission.UserPermissionGroup{}).Error; err != nil {
			return err
		}
		for _, groupID := range groupIDs {
			row := permission.UserPermissionGroup{
				UserID:            userID,
				PermissionGroupID: groupID,
				CreatedAt:         time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertDirectPermission writes the grant/revoke override, flipping the granted
// flag in place if the pivot row already exists.
func (r *PermissionRepository) UpsertDirectPermission(userID, permissionID int64, granted bool) error {
	now := time.Now()
	row := permission.UserPermission{
		UserID:       userID,
		PermissionID: permissionID,
		Granted:      granted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"granted": granted, "updated_at": now}),
	}).Create(&row).Error
}
