// Package events manages departments and the events attendance is taken for.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventattend/internal/attendance"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrNoDepartment  = errors.New("invalid member ID or department")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrMissingFilter = errors.New("either staff_id or department_id is required")
)

// Department groups staff, users and events.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is something attendance is recorded for. DepartmentName is only
// filled by listings across departments.
type Event struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Date           time.Time  `json:"date"`
	Deadline       *time.Time `json:"deadline"`
	CreatedBy      *int64     `json:"created_by"`
	DepartmentID   int64      `json:"department_id"`
	DepartmentName string     `json:"department_name,omitempty"`
}

// NewEvent is the raw input for creating an event.
type NewEvent struct {
	Name         string `json:"name"`
	Date         string `json:"date"`
	Deadline     string `json:"deadline"`
	CreatedBy    *int64 `json:"created_by"`
	DepartmentID int64  `json:"department_id"`
}

// Store persists departments and events. Member lookups return
// ErrNoDepartment when the member is unknown or has no department.
type Store interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	StaffDepartment(ctx context.Context, staffID int64) (int64, error)
	UserDepartment(ctx context.Context, userID int64) (int64, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	CreateEvent(ctx context.Context, evt Event) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Service validates event input on top of a Store.
type Service struct {
	store Store
	loc   *time.Location
}

// NewService creates a service; loc is used to read dates and deadlines.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc}
}

// Departments lists all departments by name.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

// ForStaff lists the events of the staff member's department.
func (s *Service) ForStaff(ctx context.Context, staffID, departmentID int64) ([]Event, error) {
	switch {
	case staffID > 0:
		dept, err := s.store.StaffDepartment(ctx, staffID)
		if err != nil {
			return nil, err
		}
		return s.store.ListByDepartment(ctx, dept)
	case departmentID > 0:
		return s.store.ListByDepartment(ctx, departmentID)
	default:
		return nil, ErrMissingFilter
	}
}

// All lists every event, newest first, with its department name.
func (s *Service) All(ctx context.Context) ([]Event, error) {
	return s.store.ListAll(ctx)
}

// ForUser lists the events of the user's department.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]Event, error) {
	if userID <= 0 {
		return nil, ErrNoDepartment
	}
	dept, err := s.store.UserDepartment(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListByDepartment(ctx, dept)
}

// Create validates and stores a new event. Date is YYYY-MM-DD; the optional
// deadline accepts RFC 3339, an HTML datetime-local value or any attendance
// time format.
func (s *Service) Create(ctx context.Context, in NewEvent) (Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.DepartmentID <= 0 {
		return Event{}, fmt.Errorf("%w: name and department_id are required", ErrInvalidEvent)
	}
	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(in.Date), s.loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidEvent)
	}
	evt := Event{Name: name, Date: date, CreatedBy: in.CreatedBy, DepartmentID: in.DepartmentID}
	if raw := strings.TrimSpace(in.Deadline); raw != "" {
		deadline, ok := s.parseDeadline(raw)
		if !ok {
			return Event{}, fmt.Errorf("%w: unreadable deadline", ErrInvalidEvent)
		}
		evt.Deadline = &deadline
	}
	return s.store.CreateEvent(ctx, evt)
}

// Delete removes an event; its attendance goes with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteEvent(ctx, id)
}

func (s *Service) parseDeadline(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", raw, s.loc); err == nil {
		return t, true
	}
	return attendance.ParseTimestamp(raw, s.loc)
}
