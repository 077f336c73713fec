package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventattend/internal/auth"
)

// ---------- Auth ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and hands back the identifiers the client keeps
// for later requests. No session is created.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	p, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"role":          p.Role.String(),
		"redirectUrl":   p.Role.RedirectURL(),
		"department_id": p.DepartmentID,
		p.Role.IDKey():  p.ID,
	})
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID flexID `json:"department_id"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	id, err := h.auth.Register(c.Request.Context(), auth.NewUser{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		DepartmentID: req.DepartmentID.ptr(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "userId": id})
}
