package handler

import (
	"net/http"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/cbtpro/cbtpro-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// StudentHandler serves the anonymous exam-taking endpoints. The session id
// in each request is the student's only credential.
type StudentHandler struct {
	sessionService *service.ExamSessionService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(sessionService *service.ExamSessionService) *StudentHandler {
	return &StudentHandler{sessionService: sessionService}
}

// StartExam godoc
// POST /api/student/start-exam
// Opens a new session and returns the (possibly shuffled) question list.
func (h *StudentHandler) StartExam(c *gin.Context) {
	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// SaveAnswer godoc
// POST /api/student/save-answer
func (h *StudentHandler) SaveAnswer(c *gin.Context) {
	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Answer saved"})
}

// ReportViolation godoc
// POST /api/student/report-violation
// The third violation force-submits the session with a score of zero.
func (h *StudentHandler) ReportViolation(c *gin.Context) {
	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.ReportViolation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// SubmitExam godoc
// POST /api/student/submit-exam
func (h *StudentHandler) SubmitExam(c *gin.Context) {
	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Submit(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetSession godoc
// GET /api/student/session/:id
func (h *StudentHandler) GetSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, sess)
}
