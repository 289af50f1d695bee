package handler

import (
	"net/http"

	"github.com/cbtpro/cbtpro-backend/internal/middleware"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/cbtpro/cbtpro-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ExamHandler handles exam authoring and the public token check.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// CreateExam godoc
// POST /api/exams/create
// Every question id must belong to the caller; the token must not be in use
// by another active exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, exam)
}

// ListExams godoc
// GET /api/exams/list
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.List(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	response.Success(c, http.StatusOK, exams)
}

// GetExam godoc
// GET /api/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetOwned(c.Request.Context(), claims.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// DeleteExam godoc
// DELETE /api/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Exam deleted"})
}

// LiveMonitor godoc
// GET /api/exams/:id/live-monitor
// Point-in-time list of every session of the exam.
func (h *ExamHandler) LiveMonitor(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sessions, err := h.examService.Sessions(c.Request.Context(), claims.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}

	response.Success(c, http.StatusOK, sessions)
}

// ValidateToken godoc
// POST /api/exams/validate-token
// Public. Reveals only the exam id, title and duration.
func (h *ExamHandler) ValidateToken(c *gin.Context) {
	var req model.ValidateTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.examService.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
