package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventattend/internal/auth"
	"eventattend/internal/store"
)

// memberQueries is the fixed set of statements for one account table.
type memberQueries struct {
	list, get, insert, update, updatePassword, delete string
}

var staffQueries = memberQueries{
	list: `
		SELECT s.id, s.name, s.email, s.department_id, d.name
		FROM staff s
		LEFT JOIN departments d ON d.id = s.department_id
		ORDER BY d.name, s.name`,
	get:            `SELECT id, name, email, department_id, NULL::TEXT FROM staff WHERE id = $1`,
	insert:         `INSERT INTO staff (name, email, password, department_id) VALUES ($1, $2, $3, $4) RETURNING id`,
	update:         `UPDATE staff SET name = $2, email = $3, department_id = $4 WHERE id = $1`,
	updatePassword: `UPDATE staff SET name = $2, email = $3, department_id = $4, password = $5 WHERE id = $1`,
	delete:         `DELETE FROM staff WHERE id = $1`,
}

var userQueries = memberQueries{
	list: `
		SELECT u.id, u.name, u.email, u.department_id, d.name
		FROM users u
		LEFT JOIN departments d ON d.id = u.department_id
		ORDER BY d.name, u.name`,
	get:            `SELECT id, name, email, department_id, NULL::TEXT FROM users WHERE id = $1`,
	insert:         `INSERT INTO users (name, email, password, department_id) VALUES ($1, $2, $3, $4) RETURNING id`,
	update:         `UPDATE users SET name = $2, email = $3, department_id = $4 WHERE id = $1`,
	updatePassword: `UPDATE users SET name = $2, email = $3, department_id = $4, password = $5 WHERE id = $1`,
	delete:         `DELETE FROM users WHERE id = $1`,
}

func queriesFor(role auth.Role) (memberQueries, error) {
	switch role {
	case auth.RoleStaff:
		return staffQueries, nil
	case auth.RoleUser:
		return userQueries, nil
	}
	return memberQueries{}, ErrUnsupportedRole
}

// Repository manages the staff and users tables in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListMembers returns the role's accounts ordered by department, then name.
func (r *Repository) ListMembers(ctx context.Context, role auth.Role) ([]Member, error) {
	q, err := queriesFor(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q.list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember returns one account, nil when the id is unknown.
func (r *Repository) GetMember(ctx context.Context, role auth.Role, id int64) (*Member, error) {
	q, err := queriesFor(role)
	if err != nil {
		return nil, err
	}
	m, err := scanMember(r.db.QueryRowContext(ctx, q.get, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CreateMember inserts an account and returns its id.
func (r *Repository) CreateMember(ctx context.Context, role auth.Role, m Member, passwordHash string) (int64, error) {
	q, err := queriesFor(role)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRowContext(ctx, q.insert, m.Name, m.Email, passwordHash, m.DepartmentID).Scan(&id)
	if err != nil {
		return 0, writeErr(err)
	}
	return id, nil
}

// UpdateMember rewrites an account, including the password when passwordHash is set.
func (r *Repository) UpdateMember(ctx context.Context, role auth.Role, m Member, passwordHash string) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	var res sql.Result
	if passwordHash == "" {
		res, err = r.db.ExecContext(ctx, q.update, m.ID, m.Name, m.Email, m.DepartmentID)
	} else {
		res, err = r.db.ExecContext(ctx, q.updatePassword, m.ID, m.Name, m.Email, m.DepartmentID, passwordHash)
	}
	if err != nil {
		return writeErr(err)
	}
	return affected(res)
}

// DeleteMember removes an account.
func (r *Repository) DeleteMember(ctx context.Context, role auth.Role, id int64) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q.delete, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func scanMember(scan func(dest ...any) error) (Member, error) {
	var (
		m    Member
		dept sql.NullInt64
		name sql.NullString
	)
	if err := scan(&m.ID, &m.Name, &m.Email, &dept, &name); err != nil {
		return Member{}, err
	}
	if dept.Valid {
		m.DepartmentID = &dept.Int64
	}
	if name.Valid {
		m.DepartmentName = &name.String
	}
	return m, nil
}

func writeErr(err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return ErrEmailTaken
	case store.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown department", ErrInvalidMember)
	}
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
