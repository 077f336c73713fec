package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventattend/internal/events"
)

// ---------- Departments & Events ----------

func (h *Handler) ListDepartments(c *gin.Context) {
	depts, err := h.events.Departments(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if depts == nil {
		depts = []events.Department{}
	}
	c.JSON(http.StatusOK, depts)
}

// StaffEvents lists the events of a staff member's department, found either
// through staff_id or given directly as department_id.
func (h *Handler) StaffEvents(c *gin.Context) {
	staffID, err := parseID("staff_id", c.Query("staff_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	deptID, err := parseID("department_id", c.Query("department_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	evts, err := h.events.ForStaff(c.Request.Context(), staffID, deptID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evts)
}

func (h *Handler) UserEvents(c *gin.Context) {
	userID, err := parseID("user_id", c.Query("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	evts, err := h.events.ForUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evts)
}

type createEventRequest struct {
	Name         string `json:"name"`
	Date         string `json:"date"`
	Deadline     string `json:"deadline"`
	CreatedBy    flexID `json:"created_by"`
	DepartmentID flexID `json:"department_id"`
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	evt, err := h.events.Create(c.Request.Context(), events.NewEvent{
		Name:         req.Name,
		Date:         req.Date,
		Deadline:     req.Deadline,
		CreatedBy:    req.CreatedBy.ptr(),
		DepartmentID: int64(req.DepartmentID),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, err := parseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.events.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
