package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/user"
)

// Repository loads identity rows via sqlx. Auth lookups stay on plain SQL so
// the hot login path avoids the ORM layer.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type userRow struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"password_hash"`
	Role           string    `db:"role"`
	OrganizationID *int64    `db:"organization_id"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r userRow) toDomain() *user.User {
	return &user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Role:           user.Role(r.Role),
		OrganizationID: r.OrganizationID,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const selectUserColumns = `SELECT id, name, email, password_hash, role, organization_id, is_active, created_at, updated_at FROM users`

func (r *Repository) GetUserByEmail(email string) (*user.User, error) {
	var row userRow
	err := r.db.Get(&row, selectUserColumns+` WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *Repository) GetUserByID(userID int64) (*user.User, error) {
	var row userRow
	err := r.db.Get(&row, selectUserColumns+` WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}
