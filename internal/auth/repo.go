package auth

import (
	"context"
	"database/sql"
	"errors"

	"eventattend/internal/store"
)

// Repository reads accounts from the admin, staff and users tables.
type Repository struct {
	db *sql.DB
}

var _ Accounts = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindAccount runs the fixed lookup query of the role's table.
func (r *Repository) FindAccount(ctx context.Context, role Role, email string) (*Account, error) {
	var query string
	switch role {
	case RoleAdmin:
		query = `SELECT id, name, email, password, NULL::BIGINT FROM admin WHERE email = $1`
	case RoleStaff:
		query = `SELECT id, name, email, password, department_id FROM staff WHERE email = $1`
	case RoleUser:
		query = `SELECT id, name, email, password, department_id FROM users WHERE email = $1`
	default:
		return nil, ErrInvalidDomain
	}

	var (
		a    Account
		dept sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &dept)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if dept.Valid {
		a.DepartmentID = &dept.Int64
	}
	return &a, nil
}

// CreateUser inserts a user account.
func (r *Repository) CreateUser(ctx context.Context, acct Account) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password, department_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, acct.Name, acct.Email, acct.PasswordHash, acct.DepartmentID).Scan(&id)
	if store.IsUniqueViolation(err) {
		return 0, ErrAccountExists
	}
	return id, err
}
