package events

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists departments and events in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListDepartments returns all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	depts := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

// StaffDepartment returns the department a staff member belongs to.
func (r *Repository) StaffDepartment(ctx context.Context, staffID int64) (int64, error) {
	return r.department(ctx, `SELECT department_id FROM staff WHERE id = $1`, staffID)
}

// UserDepartment returns the department a user belongs to.
func (r *Repository) UserDepartment(ctx context.Context, userID int64) (int64, error) {
	return r.department(ctx, `SELECT department_id FROM users WHERE id = $1`, userID)
}

func (r *Repository) department(ctx context.Context, query string, id int64) (int64, error) {
	var dept sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&dept); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoDepartment
		}
		return 0, err
	}
	if !dept.Valid {
		return 0, ErrNoDepartment
	}
	return dept.Int64, nil
}

// ListByDepartment returns a department's events by date.
func (r *Repository) ListByDepartment(ctx context.Context, departmentID int64) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, date, deadline, created_by, department_id
		FROM events
		WHERE department_id = $1
		ORDER BY date, id
	`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evts := []Event{}
	for rows.Next() {
		var e Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		evts = append(evts, e)
	}
	return evts, rows.Err()
}

// ListAll returns every event, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.date, e.deadline, e.created_by, e.department_id, COALESCE(d.name, '')
		FROM events e
		LEFT JOIN departments d ON d.id = e.department_id
		ORDER BY e.date DESC, e.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evts := []Event{}
	for rows.Next() {
		var e Event
		if err := scanEvent(rows, &e, &e.DepartmentName); err != nil {
			return nil, err
		}
		evts = append(evts, e)
	}
	return evts, rows.Err()
}

// scanEvent reads the common event columns followed by extra.
func scanEvent(rows *sql.Rows, e *Event, extra ...any) error {
	var (
		deadline  sql.NullTime
		createdBy sql.NullInt64
	)
	dest := append([]any{&e.ID, &e.Name, &e.Date, &deadline, &createdBy, &e.DepartmentID}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	if deadline.Valid {
		e.Deadline = &deadline.Time
	}
	if createdBy.Valid {
		e.CreatedBy = &createdBy.Int64
	}
	return nil
}

// CreateEvent inserts evt and returns it with its id.
func (r *Repository) CreateEvent(ctx context.Context, evt Event) (Event, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO events (name, date, deadline, created_by, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, evt.Name, evt.Date, evt.Deadline, evt.CreatedBy, evt.DepartmentID).Scan(&evt.ID)
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// DeleteEvent removes an event. Attendance rows cascade.
func (r *Repository) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
