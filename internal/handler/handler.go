package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"eventattend/internal/admin"
	"eventattend/internal/attendance"
	"eventattend/internal/auth"
	"eventattend/internal/events"
	"eventattend/internal/importer"
)

var errInvalidParam = errors.New("invalid parameter")

// HealthCheck is one dependency reported by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	attendance *attendance.Service
	events     *events.Service
	auth       *auth.Service
	members    *admin.Service
	checks     []HealthCheck
	log        logrus.FieldLogger
}

func New(att *attendance.Service, evts *events.Service, authSvc *auth.Service, members *admin.Service, log logrus.FieldLogger, checks ...HealthCheck) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{attendance: att, events: evts, auth: authSvc, members: members, checks: checks, log: log}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)

	r.GET("/departments", h.ListDepartments)

	att := r.Group("/attendance")
	{
		att.POST("", h.RecordAttendance)
		att.POST("/import", h.ImportAttendance)
		att.GET("/:event_id", h.ListAttendance)
		att.GET("/student/:student_id", h.StudentHistory)
		att.GET("/student/name/:student_name", h.StudentHistoryByName)
	}

	staff := r.Group("/staff")
	{
		staff.GET("/events", h.StaffEvents)
		staff.POST("/events", h.CreateEvent)
		staff.DELETE("/events/:id", h.DeleteEvent)
	}

	r.GET("/user/events", h.UserEvents)

	adm := r.Group("/admin")
	{
		for _, m := range []struct {
			path string
			role auth.Role
		}{{"/staff", auth.RoleStaff}, {"/users", auth.RoleUser}} {
			adm.GET(m.path, h.ListMembers(m.role))
			adm.GET(m.path+"/:id", h.GetMember(m.role))
			adm.POST(m.path, h.CreateMember(m.role))
			adm.PUT(m.path+"/:id", h.UpdateMember(m.role))
			adm.DELETE(m.path+"/:id", h.DeleteMember(m.role))
		}
		adm.GET("/events", h.AllEvents)
		adm.POST("/events", h.CreateEvent)
		adm.DELETE("/events/:id", h.DeleteEvent)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for _, chk := range h.checks {
		healthy := chk.Ping(ctx) == nil
		body[chk.Name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Errors ----------

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParam),
		errors.Is(err, attendance.ErrMissingParameter),
		errors.Is(err, attendance.ErrDeadlinePassed),
		errors.Is(err, attendance.ErrNoValidRecords),
		errors.Is(err, attendance.ErrNoReadableTimes),
		errors.Is(err, events.ErrInvalidEvent),
		errors.Is(err, events.ErrMissingFilter),
		errors.Is(err, events.ErrNoDepartment),
		errors.Is(err, auth.ErrInvalidDomain),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, admin.ErrInvalidMember),
		errors.Is(err, admin.ErrUnsupportedRole),
		errors.Is(err, importer.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, attendance.ErrEventNotFound),
		errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, admin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrDuplicateAttendance),
		errors.Is(err, auth.ErrAccountExists),
		errors.Is(err, admin.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ---------- Params ----------

// flexID accepts an id sent either as a JSON number or as a string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	v, err := json.Number(s).Int64()
	if err != nil {
		return fmt.Errorf("%w: %q is not an id", errInvalidParam, s)
	}
	*f = flexID(v)
	return nil
}

func (f *flexID) ptr() *int64 {
	if f == nil || *f == 0 {
		return nil
	}
	v := int64(*f)
	return &v
}

// parseID reads an optional numeric id; empty yields zero.
func parseID(name, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errInvalidParam, name)
	}
	return v, nil
}
