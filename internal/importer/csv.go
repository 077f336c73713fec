// Package importer turns uploaded attendance sheets into batch candidates.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"eventattend/internal/attendance"
)

// ErrEmpty is returned for a sheet with no data rows.
var ErrEmpty = errors.New("no attendance rows in file")

var (
	idHeaders   = []string{"student_id", "studentid", "id", "student_no", "student_number"}
	timeHeaders = []string{"attendance_time", "time", "timestamp", "attended_on", "date_time", "datetime"}
)

// ReadCSV parses an attendance sheet. A first row naming a student id column
// is treated as a header; otherwise rows are read as student_id[,attendance_time].
// Blank rows and rows without a student id are skipped.
func ReadCSV(r io.Reader) ([]attendance.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	idCol, timeCol := 0, 1
	if i, j, ok := header(rows[0]); ok {
		idCol, timeCol = i, j
		rows = rows[1:]
	}

	var out []attendance.Candidate
	for _, row := range rows {
		id := cell(row, idCol)
		if id == "" {
			continue
		}
		out = append(out, attendance.Candidate{StudentID: id, AttendanceTime: cell(row, timeCol)})
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// header locates the id and time columns; timeCol is -1 when absent.
func header(row []string) (idCol, timeCol int, ok bool) {
	idCol, timeCol = -1, -1
	for i, name := range row {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))), " ", "_")
		switch {
		case idCol < 0 && contains(idHeaders, key):
			idCol = i
		case timeCol < 0 && contains(timeHeaders, key):
			timeCol = i
		}
	}
	return idCol, timeCol, idCol >= 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
