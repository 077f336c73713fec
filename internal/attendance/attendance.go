package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrDeadlinePassed      = errors.New("deadline passed, attendance not allowed")
	ErrNoValidRecords      = errors.New("no records have attendance time within the deadline")
	ErrNoReadableTimes     = errors.New("no readable attendance times")
	ErrDuplicateAttendance = errors.New("student already marked for this event")
	ErrMissingParameter    = errors.New("missing parameter")
	ErrPersistence         = errors.New("persistence error")
	ErrNotFound            = errors.New("no events found for this student in your department")
)

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

// Record is one attendance row as written to the store.
type Record struct {
	StudentID  string
	EventID    int64
	AttendedOn time.Time
}

// Student is a read-only student directory entry.
type Student struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Course    *string `json:"course"`
	YearLevel *int    `json:"year_level"`
}

// Entry is an attendance row enriched with directory fields. The directory
// fields stay nil when the student is unknown.
type Entry struct {
	StudentID  string    `json:"student_id"`
	EventID    int64     `json:"event_id"`
	AttendedOn time.Time `json:"attended_on"`
	Name       *string   `json:"name"`
	Course     *string   `json:"course"`
	YearLevel  *int      `json:"year_level"`
}

func (e *Entry) enrich(st *Student) {
	if st == nil {
		return
	}
	name := st.Name
	e.Name = &name
	e.Course = st.Course
	e.YearLevel = st.YearLevel
}

// HistoryEntry is one attended event in a student's history.
type HistoryEntry struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Course      *string   `json:"course"`
	YearLevel   *int      `json:"year_level"`
	EventName   string    `json:"event_name"`
	EventDate   time.Time `json:"event_date"`
}

// Candidate is one row of a bulk submission. AttendanceTime is free-form
// spreadsheet text; empty means the time of the call.
type Candidate struct {
	StudentID      string `json:"student_id"`
	AttendanceTime string `json:"attendance_time,omitempty"`
}

// BatchResult summarises a bulk submission.
type BatchResult struct {
	Inserted int
}

// Store is the attendance persistence surface. InsertAttendance must enforce
// uniqueness of (student_id, event_id) itself and report a conflict as
// ErrDuplicateAttendance. EventDeadline reports ErrEventNotFound for unknown
// events and a nil deadline for unrestricted ones.
type Store interface {
	EventDeadline(ctx context.Context, eventID int64) (*time.Time, error)
	HasAttendance(ctx context.Context, studentID string, eventID int64) (bool, error)
	ExistingStudents(ctx context.Context, eventID int64, studentIDs []string) ([]string, error)
	InsertAttendance(ctx context.Context, rec Record) error
	ListByEvent(ctx context.Context, eventID int64) ([]Entry, error)
	HistoryByStudentID(ctx context.Context, studentID string, departmentID int64) ([]HistoryEntry, error)
	HistoryByStudentName(ctx context.Context, name string, departmentID int64) ([]HistoryEntry, error)
}

// Directory looks up display data for a student. A nil student with a nil
// error means the student is not listed.
type Directory interface {
	LookupStudent(ctx context.Context, studentID string) (*Student, error)
}
