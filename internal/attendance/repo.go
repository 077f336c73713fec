package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventattend/internal/store"
)

// Repository persists attendance data in Postgres. It also serves as the
// student directory backed by the student_list table.
type Repository struct {
	db *sql.DB
}

var (
	_ Store     = (*Repository)(nil)
	_ Directory = (*Repository)(nil)
)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EventDeadline returns the deadline of an event, nil when it has none.
func (r *Repository) EventDeadline(ctx context.Context, eventID int64) (*time.Time, error) {
	var deadline sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT deadline FROM events WHERE id = $1`, eventID).Scan(&deadline)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !deadline.Valid {
		return nil, nil
	}
	return &deadline.Time, nil
}

// HasAttendance reports whether the pair is already recorded.
func (r *Repository) HasAttendance(ctx context.Context, studentID string, eventID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance WHERE student_id = $1 AND event_id = $2)
	`, studentID, eventID).Scan(&exists)
	return exists, err
}

// ExistingStudents returns which of studentIDs already have a row for the event.
func (r *Repository) ExistingStudents(ctx context.Context, eventID int64, studentIDs []string) ([]string, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM attendance WHERE event_id = $1 AND student_id = ANY($2)
	`, eventID, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertAttendance writes one row. The primary key on (student_id, event_id)
// turns a concurrent duplicate into ErrDuplicateAttendance.
func (r *Repository) InsertAttendance(ctx context.Context, rec Record) error {
	if rec.AttendedOn.IsZero() {
		rec.AttendedOn = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, event_id, attended_on)
		VALUES ($1, $2, $3)
	`, rec.StudentID, rec.EventID, rec.AttendedOn)
	if store.IsUniqueViolation(err) {
		return ErrDuplicateAttendance
	}
	return err
}

// ListByEvent returns the event's attendance joined with the directory.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.student_id, a.event_id, a.attended_on, s.name, s.course, s.year_level
		FROM attendance a
		LEFT JOIN student_list s ON s.student_id = a.student_id
		WHERE a.event_id = $1
		ORDER BY a.student_id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			name   sql.NullString
			course sql.NullString
			year   sql.NullInt64
		)
		if err := rows.Scan(&e.StudentID, &e.EventID, &e.AttendedOn, &name, &course, &year); err != nil {
			return nil, err
		}
		e.Name = nullString(name)
		e.Course = nullString(course)
		e.YearLevel = nullInt(year)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const historySelect = `
	SELECT s.student_id, s.name, s.course, s.year_level, e.name, e.date
	FROM attendance a
	JOIN student_list s ON s.student_id = a.student_id
	JOIN events e ON e.id = a.event_id
`

// HistoryByStudentID lists events of a department attended by the student.
func (r *Repository) HistoryByStudentID(ctx context.Context, studentID string, departmentID int64) ([]HistoryEntry, error) {
	return r.queryHistory(ctx, historySelect+`
		WHERE a.student_id = $1 AND e.department_id = $2
		ORDER BY e.date
	`, studentID, departmentID)
}

// HistoryByStudentName matches any part of the student's name, ignoring case.
func (r *Repository) HistoryByStudentName(ctx context.Context, name string, departmentID int64) ([]HistoryEntry, error) {
	pattern := "%" + escapeLike(name) + "%"
	return r.queryHistory(ctx, historySelect+`
		WHERE s.name ILIKE $1 AND e.department_id = $2
		ORDER BY e.date, s.student_id
	`, pattern, departmentID)
}

func (r *Repository) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []HistoryEntry
	for rows.Next() {
		var (
			h      HistoryEntry
			course sql.NullString
			year   sql.NullInt64
		)
		if err := rows.Scan(&h.StudentID, &h.StudentName, &course, &year, &h.EventName, &h.EventDate); err != nil {
			return nil, err
		}
		h.Course = nullString(course)
		h.YearLevel = nullInt(year)
		res = append(res, h)
	}
	return res, rows.Err()
}

// LookupStudent returns the directory entry for a student, nil if unlisted.
func (r *Repository) LookupStudent(ctx context.Context, studentID string) (*Student, error) {
	var (
		st     Student
		course sql.NullString
		year   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT student_id, name, course, year_level FROM student_list WHERE student_id = $1
	`, studentID).Scan(&st.StudentID, &st.Name, &course, &year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup student %s: %w", studentID, err)
	}
	st.Course = nullString(course)
	st.YearLevel = nullInt(year)
	return &st, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
