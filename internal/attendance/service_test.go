package attendance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventattend/internal/attendance"
	"eventattend/internal/events"
	"eventattend/internal/store/memory"
)

var day = time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)

func at(h, m, s int) time.Time { return time.Date(2025, 2, 7, h, m, s, 0, time.UTC) }

type env struct {
	store    *memory.Store
	svc      *attendance.Service
	clock    time.Time
	deadline int64 // event with a 12:30 deadline
	open     int64 // event without a deadline
	dept     int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{store: memory.New(), clock: at(12, 0, 0)}

	dept := e.store.AddDepartment("Engineering")
	e.dept = dept.ID
	deadline := at(12, 30, 0)
	evt, err := e.store.CreateEvent(ctx, events.Event{Name: "Orientation", Date: day, Deadline: &deadline, DepartmentID: dept.ID})
	require.NoError(t, err)
	e.deadline = evt.ID
	evt, err = e.store.CreateEvent(ctx, events.Event{Name: "Fair", Date: day.AddDate(0, 0, 1), DepartmentID: dept.ID})
	require.NoError(t, err)
	e.open = evt.ID

	e.store.AddStudent(attendance.Student{StudentID: "A", Name: "Ana Reyes"})
	e.store.AddStudent(attendance.Student{StudentID: "B", Name: "Ben Cruz"})

	e.svc = e.service(e.store)
	return e
}

func (e *env) service(store attendance.Store) *attendance.Service {
	logger, _ := test.NewNullLogger()
	return attendance.NewService(store, e.store, attendance.Options{
		Location:          time.UTC,
		InsertConcurrency: 4,
		Logger:            logger,
		Now:               func() time.Time { return e.clock },
	})
}

func (e *env) list(t *testing.T, eventID int64) map[string]time.Time {
	t.Helper()
	entries, err := e.svc.ListByEvent(context.Background(), eventID)
	require.NoError(t, err)
	out := make(map[string]time.Time, len(entries))
	for _, en := range entries {
		out[en.StudentID] = en.AttendedOn
	}
	return out
}

func TestRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	entry, err := e.svc.Record(ctx, e.deadline, " A ")
	require.NoError(t, err)
	assert.Equal(t, "A", entry.StudentID)
	assert.Equal(t, e.clock, entry.AttendedOn)
	require.NotNil(t, entry.Name)
	assert.Equal(t, "Ana Reyes", *entry.Name)

	_, err = e.svc.Record(ctx, e.deadline, "A")
	assert.ErrorIs(t, err, attendance.ErrDuplicateAttendance)

	entry, err = e.svc.Record(ctx, e.deadline, "Z")
	require.NoError(t, err)
	assert.Nil(t, entry.Name, "unlisted students are recorded without directory fields")

	assert.Len(t, e.list(t, e.deadline), 2)
}

func TestRecordDeadline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.clock = at(12, 30, 0)
	_, err := e.svc.Record(ctx, e.deadline, "A")
	require.NoError(t, err, "the deadline itself is still on time")

	e.clock = at(12, 30, 1)
	_, err = e.svc.Record(ctx, e.deadline, "B")
	assert.ErrorIs(t, err, attendance.ErrDeadlinePassed)
	assert.NotContains(t, e.list(t, e.deadline), "B")

	_, err = e.svc.Record(ctx, e.open, "B")
	assert.NoError(t, err)
}

func TestRecordValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Record(ctx, 0, "A")
	assert.ErrorIs(t, err, attendance.ErrMissingParameter)
	_, err = e.svc.Record(ctx, e.deadline, "  ")
	assert.ErrorIs(t, err, attendance.ErrMissingParameter)
	_, err = e.svc.Record(ctx, 999, "A")
	assert.ErrorIs(t, err, attendance.ErrEventNotFound)
}

func TestRecordConcurrent(t *testing.T) {
	e := newEnv(t)

	const callers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		dupes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Record(context.Background(), e.deadline, "A")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, attendance.ErrDuplicateAttendance):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, dupes)
	assert.Len(t, e.list(t, e.deadline), 1)
}

func TestRecordBatch(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.RecordBatch(context.Background(), e.deadline, []attendance.Candidate{
		{StudentID: "A", AttendanceTime: "2/7/2025 12:28"},
		{StudentID: "B", AttendanceTime: "2/7/2025 12:31"},
		{StudentID: "C", AttendanceTime: "2/7/2025 12:30"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, map[string]time.Time{"A": at(12, 28, 0), "C": at(12, 30, 0)}, e.list(t, e.deadline), "a time equal to the deadline is kept")
}

func TestRecordBatchDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Record(ctx, e.deadline, "A")
	require.NoError(t, err)

	res, err := e.svc.RecordBatch(ctx, e.deadline, []attendance.Candidate{
		{StudentID: "A", AttendanceTime: "2/7/2025 12:01"},
		{StudentID: "B", AttendanceTime: "7/Feb/2025 12:10"},
		{StudentID: "C", AttendanceTime: "2/7/2025 12:20"},
		{StudentID: "B", AttendanceTime: "2/7/2025 12:15"},
		{StudentID: "", AttendanceTime: "2/7/2025 12:15"},
		{StudentID: "D", AttendanceTime: "yesterday"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	got := e.list(t, e.deadline)
	assert.Equal(t, e.clock, got["A"], "existing row is untouched")
	assert.Equal(t, at(12, 10, 0), got["B"], "first occurrence wins")
	assert.Equal(t, at(12, 20, 0), got["C"])
	assert.NotContains(t, got, "D")
}

func TestRecordBatchNoValidRecords(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.RecordBatch(context.Background(), e.deadline, []attendance.Candidate{
		{StudentID: "A", AttendanceTime: "2/7/2025 13:00"},
		{StudentID: "B", AttendanceTime: "not a time"},
	})
	assert.ErrorIs(t, err, attendance.ErrNoValidRecords)
	assert.Empty(t, e.list(t, e.deadline))

	_, err = e.svc.RecordBatch(context.Background(), e.deadline, nil)
	assert.ErrorIs(t, err, attendance.ErrNoValidRecords)
}

func TestRecordBatchNoReadableTimes(t *testing.T) {
	e := newEnv(t)

	for _, id := range []int64{e.open, e.deadline} {
		_, err := e.svc.RecordBatch(context.Background(), id, []attendance.Candidate{
			{StudentID: "A", AttendanceTime: "garbage"},
			{StudentID: "B", AttendanceTime: "not a time"},
		})
		require.ErrorIs(t, err, attendance.ErrNoReadableTimes)
		assert.NotErrorIs(t, err, attendance.ErrNoValidRecords)
		assert.NotContains(t, err.Error(), "deadline")
		assert.Empty(t, e.list(t, id))
	}
}

func TestRecordBatchAllExisting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.RecordIDs(ctx, e.open, []string{"A"})
	require.NoError(t, err)

	res, err := e.svc.RecordIDs(ctx, e.open, []string{"A"})
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
}

func TestRecordIDs(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.RecordIDs(context.Background(), e.open, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, map[string]time.Time{"A": e.clock, "B": e.clock, "C": e.clock}, e.list(t, e.open))

	e.clock = at(13, 0, 0)
	_, err = e.svc.RecordIDs(context.Background(), e.deadline, []string{"A"})
	assert.ErrorIs(t, err, attendance.ErrNoValidRecords)
}

// racyStore reports no existing rows but conflicts on insert, as when
// another caller wins between the check and the write.
type racyStore struct {
	attendance.Store
	insertErr error
	inserted  int
	mu        sync.Mutex
}

func (s *racyStore) HasAttendance(context.Context, string, int64) (bool, error) { return false, nil }

func (s *racyStore) ExistingStudents(context.Context, int64, []string) ([]string, error) {
	return nil, nil
}

func (s *racyStore) InsertAttendance(_ context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.StudentID == "B" {
		return s.insertErr
	}
	s.inserted++
	return nil
}

func TestInsertConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	store := &racyStore{Store: e.store, insertErr: attendance.ErrDuplicateAttendance}
	svc := e.service(store)

	_, err := svc.Record(ctx, e.deadline, "B")
	assert.ErrorIs(t, err, attendance.ErrDuplicateAttendance)

	res, err := svc.RecordIDs(ctx, e.deadline, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted, "a conflicting row is dropped silently")
}

func TestPersistenceErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	store := &racyStore{Store: e.store, insertErr: errors.New("connection reset by peer")}
	svc := e.service(store)

	_, err := svc.Record(ctx, e.deadline, "B")
	require.ErrorIs(t, err, attendance.ErrPersistence)
	assert.Contains(t, err.Error(), "connection reset by peer")

	_, err = svc.RecordIDs(ctx, e.deadline, []string{"A", "B"})
	require.ErrorIs(t, err, attendance.ErrPersistence)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

type failingDirectory struct{}

func (failingDirectory) LookupStudent(context.Context, string) (*attendance.Student, error) {
	return nil, errors.New("directory offline")
}

func TestRecordDirectoryFailure(t *testing.T) {
	e := newEnv(t)
	logger, hook := test.NewNullLogger()
	svc := attendance.NewService(e.store, failingDirectory{}, attendance.Options{
		Location: time.UTC,
		Logger:   logger,
		Now:      func() time.Time { return e.clock },
	})

	entry, err := svc.Record(context.Background(), e.deadline, "A")
	require.NoError(t, err)
	assert.Nil(t, entry.Name)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "student directory lookup failed", hook.LastEntry().Message)
}

func TestHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.RecordIDs(ctx, e.open, []string{"A"})
	require.NoError(t, err)
	_, err = e.svc.Record(ctx, e.deadline, "A")
	require.NoError(t, err)

	rows, err := e.svc.HistoryByStudentID(ctx, "A", e.dept)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Orientation", rows[0].EventName, "ordered by event date")
	assert.Equal(t, "Fair", rows[1].EventName)

	rows, err = e.svc.HistoryByStudentName(ctx, "REYES", e.dept)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = e.svc.HistoryByStudentID(ctx, "A", 0)
	assert.ErrorIs(t, err, attendance.ErrMissingParameter)
	_, err = e.svc.HistoryByStudentName(ctx, " ", e.dept)
	assert.ErrorIs(t, err, attendance.ErrMissingParameter)
	_, err = e.svc.HistoryByStudentID(ctx, "B", e.dept)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
	_, err = e.svc.HistoryByStudentID(ctx, "A", e.dept+100)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
}
