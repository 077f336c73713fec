package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventattend/internal/admin"
	"eventattend/internal/auth"
	"eventattend/internal/events"
)

// ---------- Admin ----------

type memberRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID flexID `json:"department_id"`
}

func (r *memberRequest) input() admin.MemberInput {
	return admin.MemberInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		DepartmentID: r.DepartmentID.ptr(),
	}
}

// memberLabel names the account kind in response messages.
func memberLabel(role auth.Role) string {
	if role == auth.RoleStaff {
		return "Staff member"
	}
	return "User"
}

func (h *Handler) ListMembers(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := h.members.Members(c.Request.Context(), role)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

func (h *Handler) GetMember(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID("id", c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		m, err := h.members.Member(c.Request.Context(), role, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func (h *Handler) CreateMember(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req memberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest(err))
			return
		}
		id, err := h.members.Create(c.Request.Context(), role, req.input())
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": memberLabel(role) + " created", "id": id})
	}
}

// UpdateMember replaces a member; an empty password keeps the current one.
func (h *Handler) UpdateMember(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID("id", c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		var req memberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, badRequest(err))
			return
		}
		if err := h.members.Update(c.Request.Context(), role, id, req.input()); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": memberLabel(role) + " updated"})
	}
}

func (h *Handler) DeleteMember(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID("id", c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.members.Delete(c.Request.Context(), role, id); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": memberLabel(role) + " deleted"})
	}
}

// AllEvents lists events across every department, newest first.
func (h *Handler) AllEvents(c *gin.Context) {
	evts, err := h.events.All(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if evts == nil {
		evts = []events.Event{}
	}
	c.JSON(http.StatusOK, evts)
}
