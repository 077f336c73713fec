// Package memory is a map-backed implementation of every store interface,
// for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eventattend/internal/admin"
	"eventattend/internal/attendance"
	"eventattend/internal/auth"
	"eventattend/internal/events"
)

type pair struct {
	studentID string
	eventID   int64
}

type account struct {
	role auth.Role
	auth.Account
}

// Store holds all state behind one lock, so uniqueness checks and inserts
// are atomic with respect to each other.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	departments map[int64]events.Department
	events      map[int64]events.Event
	students    map[string]attendance.Student
	attendance  map[pair]time.Time
	accounts    []account
}

var (
	_ attendance.Store     = (*Store)(nil)
	_ attendance.Directory = (*Store)(nil)
	_ events.Store         = (*Store)(nil)
	_ auth.Accounts        = (*Store)(nil)
	_ admin.Store          = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		departments: make(map[int64]events.Department),
		events:      make(map[int64]events.Event),
		students:    make(map[string]attendance.Student),
		attendance:  make(map[pair]time.Time),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddDepartment seeds a department.
func (s *Store) AddDepartment(name string) events.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := events.Department{ID: s.id(), Name: name}
	s.departments[d.ID] = d
	return d
}

// AddStudent seeds a student directory entry.
func (s *Store) AddStudent(st attendance.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.StudentID] = st
}

// AddAccount seeds an account with an already hashed password.
func (s *Store) AddAccount(role auth.Role, acct auth.Account) auth.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct.ID = s.id()
	s.accounts = append(s.accounts, account{role: role, Account: acct})
	return acct
}

// -------- attendance.Store --------

func (s *Store) EventDeadline(_ context.Context, eventID int64) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evt, ok := s.events[eventID]
	if !ok {
		return nil, attendance.ErrEventNotFound
	}
	if evt.Deadline == nil {
		return nil, nil
	}
	d := *evt.Deadline
	return &d, nil
}

func (s *Store) HasAttendance(_ context.Context, studentID string, eventID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.attendance[pair{studentID, eventID}]
	return ok, nil
}

func (s *Store) ExistingStudents(_ context.Context, eventID int64, studentIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range studentIDs {
		if _, ok := s.attendance[pair{id, eventID}]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) InsertAttendance(_ context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[rec.EventID]; !ok {
		return fmt.Errorf("insert attendance: event %d does not exist", rec.EventID)
	}
	k := pair{rec.StudentID, rec.EventID}
	if _, ok := s.attendance[k]; ok {
		return attendance.ErrDuplicateAttendance
	}
	if rec.AttendedOn.IsZero() {
		rec.AttendedOn = time.Now()
	}
	s.attendance[k] = rec.AttendedOn
	return nil
}

func (s *Store) ListByEvent(_ context.Context, eventID int64) ([]attendance.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []attendance.Entry{}
	for k, at := range s.attendance {
		if k.eventID != eventID {
			continue
		}
		e := attendance.Entry{StudentID: k.studentID, EventID: k.eventID, AttendedOn: at}
		if st, ok := s.students[k.studentID]; ok {
			name := st.Name
			e.Name, e.Course, e.YearLevel = &name, st.Course, st.YearLevel
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].StudentID < entries[j].StudentID })
	return entries, nil
}

func (s *Store) HistoryByStudentID(_ context.Context, studentID string, departmentID int64) ([]attendance.HistoryEntry, error) {
	return s.history(departmentID, func(st attendance.Student) bool { return st.StudentID == studentID }), nil
}

func (s *Store) HistoryByStudentName(_ context.Context, name string, departmentID int64) ([]attendance.HistoryEntry, error) {
	needle := strings.ToLower(name)
	return s.history(departmentID, func(st attendance.Student) bool {
		return strings.Contains(strings.ToLower(st.Name), needle)
	}), nil
}

func (s *Store) history(departmentID int64, match func(attendance.Student) bool) []attendance.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []attendance.HistoryEntry
	for k := range s.attendance {
		st, ok := s.students[k.studentID]
		if !ok || !match(st) {
			continue
		}
		evt, ok := s.events[k.eventID]
		if !ok || evt.DepartmentID != departmentID {
			continue
		}
		res = append(res, attendance.HistoryEntry{
			StudentID:   st.StudentID,
			StudentName: st.Name,
			Course:      st.Course,
			YearLevel:   st.YearLevel,
			EventName:   evt.Name,
			EventDate:   evt.Date,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].EventDate.Equal(res[j].EventDate) {
			return res[i].EventDate.Before(res[j].EventDate)
		}
		return res[i].StudentID < res[j].StudentID
	})
	return res
}

// -------- attendance.Directory --------

func (s *Store) LookupStudent(_ context.Context, studentID string) (*attendance.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// -------- events.Store --------

func (s *Store) ListDepartments(_ context.Context) ([]events.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	depts := make([]events.Department, 0, len(s.departments))
	for _, d := range s.departments {
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })
	return depts, nil
}

func (s *Store) StaffDepartment(_ context.Context, staffID int64) (int64, error) {
	return s.memberDepartment(auth.RoleStaff, staffID)
}

func (s *Store) UserDepartment(_ context.Context, userID int64) (int64, error) {
	return s.memberDepartment(auth.RoleUser, userID)
}

func (s *Store) memberDepartment(role auth.Role, id int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.role == role && a.ID == id && a.DepartmentID != nil {
			return *a.DepartmentID, nil
		}
	}
	return 0, events.ErrNoDepartment
}

func (s *Store) ListByDepartment(_ context.Context, departmentID int64) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evts := []events.Event{}
	for _, e := range s.events {
		if e.DepartmentID == departmentID {
			evts = append(evts, e)
		}
	}
	sort.Slice(evts, func(i, j int) bool {
		if !evts[i].Date.Equal(evts[j].Date) {
			return evts[i].Date.Before(evts[j].Date)
		}
		return evts[i].ID < evts[j].ID
	})
	return evts, nil
}

func (s *Store) ListAll(_ context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evts := make([]events.Event, 0, len(s.events))
	for _, e := range s.events {
		e.DepartmentName = s.departments[e.DepartmentID].Name
		evts = append(evts, e)
	}
	sort.Slice(evts, func(i, j int) bool {
		if !evts[i].Date.Equal(evts[j].Date) {
			return evts[i].Date.After(evts[j].Date)
		}
		return evts[i].ID > evts[j].ID
	})
	return evts, nil
}

func (s *Store) CreateEvent(_ context.Context, evt events.Event) (events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[evt.DepartmentID]; !ok {
		return events.Event{}, fmt.Errorf("create event: department %d does not exist", evt.DepartmentID)
	}
	evt.ID = s.id()
	s.events[evt.ID] = evt
	return evt, nil
}

func (s *Store) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return events.ErrNotFound
	}
	delete(s.events, id)
	for k := range s.attendance {
		if k.eventID == id {
			delete(s.attendance, k)
		}
	}
	return nil
}

// -------- auth.Accounts --------

func (s *Store) FindAccount(_ context.Context, role auth.Role, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.role == role && strings.EqualFold(a.Email, email) {
			acct := a.Account
			return &acct, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateUser(_ context.Context, acct auth.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.role == auth.RoleUser && strings.EqualFold(a.Email, acct.Email) {
			return 0, auth.ErrAccountExists
		}
	}
	acct.ID = s.id()
	s.accounts = append(s.accounts, account{role: auth.RoleUser, Account: acct})
	return acct.ID, nil
}

// -------- admin.Store --------

func (s *Store) ListMembers(_ context.Context, role auth.Role) ([]admin.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := []admin.Member{}
	for _, a := range s.accounts {
		if a.role == role {
			members = append(members, s.member(a))
		}
	}
	// departments by name, members without one last
	sort.SliceStable(members, func(i, j int) bool {
		di, dj := members[i].DepartmentName, members[j].DepartmentName
		switch {
		case di == nil && dj != nil:
			return false
		case di != nil && dj == nil:
			return true
		case di != nil && *di != *dj:
			return *di < *dj
		}
		return members[i].Name < members[j].Name
	})
	return members, nil
}

func (s *Store) GetMember(_ context.Context, role auth.Role, id int64) (*admin.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.accountIndex(role, id)
	if i < 0 {
		return nil, nil
	}
	m := s.member(s.accounts[i])
	m.DepartmentName = nil
	return &m, nil
}

func (s *Store) CreateMember(_ context.Context, role auth.Role, m admin.Member, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMember(role, m); err != nil {
		return 0, err
	}
	acct := auth.Account{ID: s.id(), Name: m.Name, Email: m.Email, PasswordHash: passwordHash, DepartmentID: m.DepartmentID}
	s.accounts = append(s.accounts, account{role: role, Account: acct})
	return acct.ID, nil
}

func (s *Store) UpdateMember(_ context.Context, role auth.Role, m admin.Member, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(role, m.ID)
	if i < 0 {
		return admin.ErrNotFound
	}
	if err := s.checkMember(role, m); err != nil {
		return err
	}
	a := &s.accounts[i]
	a.Name, a.Email, a.DepartmentID = m.Name, m.Email, m.DepartmentID
	if passwordHash != "" {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (s *Store) DeleteMember(_ context.Context, role auth.Role, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(role, id)
	if i < 0 {
		return admin.ErrNotFound
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return nil
}

func (s *Store) accountIndex(role auth.Role, id int64) int {
	for i, a := range s.accounts {
		if a.role == role && a.ID == id {
			return i
		}
	}
	return -1
}

// checkMember enforces the unique email and department reference of the
// role's table.
func (s *Store) checkMember(role auth.Role, m admin.Member) error {
	for _, a := range s.accounts {
		if a.role == role && a.ID != m.ID && strings.EqualFold(a.Email, m.Email) {
			return admin.ErrEmailTaken
		}
	}
	if m.DepartmentID != nil {
		if _, ok := s.departments[*m.DepartmentID]; !ok {
			return fmt.Errorf("%w: unknown department", admin.ErrInvalidMember)
		}
	}
	return nil
}

func (s *Store) member(a account) admin.Member {
	m := admin.Member{ID: a.ID, Name: a.Name, Email: a.Email, DepartmentID: a.DepartmentID}
	if a.DepartmentID != nil {
		if d, ok := s.departments[*a.DepartmentID]; ok {
			name := d.Name
			m.DepartmentName = &name
		}
	}
	return m
}
