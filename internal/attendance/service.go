package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"eventattend/internal/metrics"
)

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	// Location is used to read spreadsheet attendance times.
	Location *time.Location
	// InsertConcurrency caps parallel inserts within one batch.
	InsertConcurrency int
	Logger            logrus.FieldLogger
	Now               func() time.Time
}

// Service records attendance: deadline enforcement, duplicate suppression and
// bulk reconciliation against existing rows.
type Service struct {
	store       Store
	directory   Directory
	loc         *time.Location
	concurrency int
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewService creates a service backed by a store. directory may be nil, in
// which case results are never enriched.
func NewService(store Store, directory Directory, opts Options) *Service {
	s := &Service{
		store:       store,
		directory:   directory,
		loc:         opts.Location,
		concurrency: opts.InsertConcurrency,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.concurrency <= 0 {
		s.concurrency = 8
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Record checks one student into an event at the current time.
func (s *Service) Record(ctx context.Context, eventID int64, studentID string) (Entry, error) {
	studentID = strings.TrimSpace(studentID)
	if eventID <= 0 {
		return Entry{}, s.reject(missing("event_id"))
	}
	if studentID == "" {
		return Entry{}, s.reject(missing("student_id"))
	}

	deadline, err := s.store.EventDeadline(ctx, eventID)
	if err != nil {
		return Entry{}, s.reject(storeErr(err))
	}
	now := s.now()
	if deadline != nil && now.After(*deadline) {
		return Entry{}, s.reject(ErrDeadlinePassed)
	}

	// The store's uniqueness constraint is authoritative; this only avoids
	// a write we already know will conflict.
	exists, err := s.store.HasAttendance(ctx, studentID, eventID)
	if err != nil {
		return Entry{}, s.reject(storeErr(err))
	}
	if exists {
		return Entry{}, s.reject(ErrDuplicateAttendance)
	}

	rec := Record{StudentID: studentID, EventID: eventID, AttendedOn: now}
	if err := s.store.InsertAttendance(ctx, rec); err != nil {
		return Entry{}, s.reject(storeErr(err))
	}
	metrics.AttendanceRecorded.WithLabelValues(metrics.ModeSingle).Inc()

	entry := Entry{StudentID: studentID, EventID: eventID, AttendedOn: now}
	s.enrich(ctx, &entry)
	return entry, nil
}

// RecordBatch records a bulk submission of timestamped candidates. Rows after
// the deadline, rows already recorded for the event and repeated students
// within the batch are dropped silently; the first occurrence of a student
// wins. It fails with ErrNoValidRecords when nothing survives the deadline,
// or with ErrNoReadableTimes when every row was dropped for an unreadable time.
func (s *Service) RecordBatch(ctx context.Context, eventID int64, candidates []Candidate) (BatchResult, error) {
	if eventID <= 0 {
		return BatchResult{}, s.reject(missing("event_id"))
	}
	metrics.BatchSize.Observe(float64(len(candidates)))

	deadline, err := s.store.EventDeadline(ctx, eventID)
	if err != nil {
		return BatchResult{}, s.reject(storeErr(err))
	}

	valid, late, unreadable := s.withinDeadline(candidates, deadline, s.now())
	if len(valid) == 0 {
		if late == 0 && unreadable > 0 {
			return BatchResult{}, s.reject(ErrNoReadableTimes)
		}
		return BatchResult{}, s.reject(ErrNoValidRecords)
	}

	existing, err := s.store.ExistingStudents(ctx, eventID, distinctStudents(valid))
	if err != nil {
		return BatchResult{}, s.reject(storeErr(err))
	}
	fresh := dropDuplicates(valid, existing)

	inserted, err := s.insertAll(ctx, eventID, fresh)
	if err != nil {
		return BatchResult{}, s.reject(storeErr(err))
	}
	metrics.AttendanceRecorded.WithLabelValues(metrics.ModeBatch).Add(float64(inserted))

	s.log.WithFields(logrus.Fields{
		"event_id":  eventID,
		"submitted": len(candidates),
		"valid":     len(valid),
		"inserted":  inserted,
	}).Debug("bulk attendance recorded")
	return BatchResult{Inserted: inserted}, nil
}

// RecordIDs records a bulk submission of bare student ids, each stamped with
// the time of the call.
func (s *Service) RecordIDs(ctx context.Context, eventID int64, studentIDs []string) (BatchResult, error) {
	candidates := make([]Candidate, len(studentIDs))
	for i, id := range studentIDs {
		candidates[i] = Candidate{StudentID: id}
	}
	return s.RecordBatch(ctx, eventID, candidates)
}

// ListByEvent returns everyone recorded for an event, ordered by student id.
func (s *Service) ListByEvent(ctx context.Context, eventID int64) ([]Entry, error) {
	if eventID <= 0 {
		return nil, missing("event_id")
	}
	entries, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// HistoryByStudentID lists the department's events a student attended.
func (s *Service) HistoryByStudentID(ctx context.Context, studentID string, departmentID int64) ([]HistoryEntry, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, missing("student_id")
	}
	if departmentID <= 0 {
		return nil, missing("department_id")
	}
	return history(s.store.HistoryByStudentID(ctx, studentID, departmentID))
}

// HistoryByStudentName is HistoryByStudentID for a partial name match.
func (s *Service) HistoryByStudentName(ctx context.Context, name string, departmentID int64) ([]HistoryEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, missing("student_name")
	}
	if departmentID <= 0 {
		return nil, missing("department_id")
	}
	return history(s.store.HistoryByStudentName(ctx, name, departmentID))
}

func history(rows []HistoryEntry, err error) ([]HistoryEntry, error) {
	if err != nil {
		return nil, storeErr(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

type timedRecord struct {
	studentID string
	at        time.Time
}

// withinDeadline resolves each candidate's time and keeps those not after
// deadline. Times that cannot be read are never trusted and always dropped.
// late and unreadable count the rows dropped for each cause.
func (s *Service) withinDeadline(candidates []Candidate, deadline *time.Time, now time.Time) (out []timedRecord, late, unreadable int) {
	out = make([]timedRecord, 0, len(candidates))
	for _, c := range candidates {
		id := strings.TrimSpace(c.StudentID)
		if id == "" {
			continue
		}
		at := now
		if raw := strings.TrimSpace(c.AttendanceTime); raw != "" {
			t, ok := ParseTimestamp(raw, s.loc)
			if !ok {
				metrics.BatchDropped.WithLabelValues(metrics.DropUnparseable).Inc()
				s.log.WithFields(logrus.Fields{"student_id": id, "attendance_time": raw}).Warn("unreadable attendance time, dropping row")
				unreadable++
				continue
			}
			at = t
		}
		if deadline != nil && at.After(*deadline) {
			metrics.BatchDropped.WithLabelValues(metrics.DropDeadline).Inc()
			late++
			continue
		}
		out = append(out, timedRecord{studentID: id, at: at})
	}
	return out, late, unreadable
}

func distinctStudents(recs []timedRecord) []string {
	seen := make(map[string]struct{}, len(recs))
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.studentID]; ok {
			continue
		}
		seen[r.studentID] = struct{}{}
		ids = append(ids, r.studentID)
	}
	return ids
}

// dropDuplicates removes students already recorded and keeps only the first
// occurrence of each remaining student, preserving input order.
func dropDuplicates(recs []timedRecord, existing []string) []timedRecord {
	skip := make(map[string]struct{}, len(existing)+len(recs))
	for _, id := range existing {
		skip[id] = struct{}{}
	}
	out := make([]timedRecord, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if _, ok := skip[r.studentID]; ok {
			metrics.BatchDropped.WithLabelValues(metrics.DropExisting).Inc()
			continue
		}
		if _, ok := seen[r.studentID]; ok {
			metrics.BatchDropped.WithLabelValues(metrics.DropInBatch).Inc()
			continue
		}
		seen[r.studentID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// insertAll writes recs concurrently and waits for all of them. A conflict
// with a concurrent writer is dropped like any other duplicate.
func (s *Service) insertAll(ctx context.Context, eventID int64, recs []timedRecord) (int, error) {
	var inserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, r := range recs {
		g.Go(func() error {
			err := s.store.InsertAttendance(gctx, Record{StudentID: r.studentID, EventID: eventID, AttendedOn: r.at})
			switch {
			case err == nil:
				inserted.Add(1)
			case errors.Is(err, ErrDuplicateAttendance):
				metrics.BatchDropped.WithLabelValues(metrics.DropInsertConflict).Inc()
			default:
				return fmt.Errorf("insert %s: %w", r.studentID, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(inserted.Load()), err
}

func (s *Service) enrich(ctx context.Context, e *Entry) {
	if s.directory == nil {
		return
	}
	st, err := s.directory.LookupStudent(ctx, e.StudentID)
	if err != nil {
		s.log.WithError(err).WithField("student_id", e.StudentID).Warn("student directory lookup failed")
		return
	}
	e.enrich(st)
}

func (s *Service) reject(err error) error {
	metrics.AttendanceRejected.WithLabelValues(reason(err)).Inc()
	return err
}

// storeErr passes domain errors through and files everything else under
// ErrPersistence, keeping the driver message.
func storeErr(err error) error {
	switch {
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrDuplicateAttendance),
		errors.Is(err, ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingParameter):
		return "missing_parameter"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, ErrNoValidRecords):
		return "no_valid_records"
	case errors.Is(err, ErrNoReadableTimes):
		return "no_readable_times"
	case errors.Is(err, ErrDuplicateAttendance):
		return "duplicate"
	default:
		return "persistence"
	}
}
