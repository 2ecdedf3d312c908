package postgres

import (
	"github.com/smuchara/pollstack/internal/organization"
	"gorm.io/gorm"
)

// OrganizationRepository implements organization.Repository using GORM
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.Repository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(id int64) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) GetBySlug(slug string) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.Where("slug = ?", slug).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) Create(org *organization.Organization) error {
	return r.db.Create(org).Error
}
