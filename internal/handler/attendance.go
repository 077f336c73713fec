package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventattend/internal/attendance"
	"eventattend/internal/importer"
)

const bulkRecorded = "Bulk attendance records added successfully."

// ---------- Record Attendance ----------

// recordRequest carries one of three shapes: a single student_id, a list of
// timestamped records, or a list of bare student_ids.
type recordRequest struct {
	EventID    flexID                 `json:"event_id"`
	StudentID  string                 `json:"student_id"`
	Records    []attendance.Candidate `json:"records"`
	StudentIDs []string               `json:"student_ids"`
}

func (h *Handler) RecordAttendance(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	ctx := c.Request.Context()
	eventID := int64(req.EventID)

	switch {
	case len(req.Records) > 0:
		if _, err := h.attendance.RecordBatch(ctx, eventID, req.Records); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": bulkRecorded})
	case len(req.StudentIDs) > 0:
		if _, err := h.attendance.RecordIDs(ctx, eventID, req.StudentIDs); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": bulkRecorded})
	default:
		entry, err := h.attendance.Record(ctx, eventID, req.StudentID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "data": entry})
	}
}

// ImportAttendance takes a multipart form with event_id and a CSV file of
// student_id[,attendance_time] rows and records it as one batch.
func (h *Handler) ImportAttendance(c *gin.Context) {
	eventID, err := parseID("event_id", c.PostForm("event_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, fmt.Errorf("%w: file is required", attendance.ErrMissingParameter))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	candidates, err := importer.ReadCSV(f)
	if err != nil {
		h.fail(c, badRequest(err))
		return
	}
	res, err := h.attendance.RecordBatch(c.Request.Context(), eventID, candidates)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": bulkRecorded, "rows": len(candidates), "inserted": res.Inserted})
}

// ---------- Queries ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	eventID, err := parseID("event_id", c.Param("event_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.attendance.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []attendance.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) StudentHistory(c *gin.Context) {
	deptID, err := parseID("department_id", c.Query("department_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.attendance.HistoryByStudentID(c.Request.Context(), c.Param("student_id"), deptID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) StudentHistoryByName(c *gin.Context) {
	deptID, err := parseID("department_id", c.Query("department_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.attendance.HistoryByStudentName(c.Request.Context(), c.Param("student_name"), deptID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// badRequest files a decoding error under errInvalidParam unless it already
// carries a domain error.
func badRequest(err error) error {
	if errors.Is(err, errInvalidParam) || errors.Is(err, importer.ErrEmpty) {
		return err
	}
	return fmt.Errorf("%w: %v", errInvalidParam, err)
}
