package handler

import (
	"context"
	"net/http"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuperadminHandler handles account approval.
type SuperadminHandler struct {
	userService *service.UserService
}

func NewSuperadminHandler(userService *service.UserService) *SuperadminHandler {
	return &SuperadminHandler{userService: userService}
}

// PendingUsers godoc
// GET /api/superadmin/pending-users
func (h *SuperadminHandler) PendingUsers(c *gin.Context) {
	users, err := h.userService.PendingUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	response.Success(c, http.StatusOK, users)
}

// ApproveUser godoc
// POST /api/superadmin/approve-user/:id
func (h *SuperadminHandler) ApproveUser(c *gin.Context) {
	h.setStatus(c, h.userService.Approve, "User approved")
}

// RejectUser godoc
// POST /api/superadmin/reject-user/:id
func (h *SuperadminHandler) RejectUser(c *gin.Context) {
	h.setStatus(c, h.userService.Reject, "User rejected")
}

func (h *SuperadminHandler) setStatus(c *gin.Context, apply func(context.Context, uuid.UUID) error, msg string) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := apply(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": msg})
}

// AllTeachers godoc
// GET /api/superadmin/all-teachers
func (h *SuperadminHandler) AllTeachers(c *gin.Context) {
	teachers, err := h.userService.AllTeachers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if teachers == nil {
		teachers = []model.UserWithTeacher{}
	}
	response.Success(c, http.StatusOK, teachers)
}
