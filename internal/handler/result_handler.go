package handler

import (
	"fmt"
	"net/http"

	"github.com/cbtpro/cbtpro-backend/internal/middleware"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ResultHandler serves exam results and exports to the owning teacher.
type ResultHandler struct {
	resultService *service.ResultService
}

func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// ExamResults godoc
// GET /api/results/exam/:examId
func (h *ResultHandler) ExamResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := pathUUID(c, "examId")
	if !ok {
		return
	}

	sessions, err := h.resultService.ExamResults(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}

	response.Success(c, http.StatusOK, sessions)
}

// Export godoc
// GET /api/results/export/:examId?format=csv|xlsx
func (h *ResultHandler) Export(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := pathUUID(c, "examId")
	if !ok {
		return
	}

	var (
		body        []byte
		err         error
		ext         string
		contentType string
	)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		body, err = h.resultService.ExportCSV(c.Request.Context(), claims.UserID, examID)
		ext, contentType = "csv", contentTypeCSV
	case "xlsx":
		body, err = h.resultService.ExportXLSX(c.Request.Context(), claims.UserID, examID)
		ext, contentType = "xlsx", contentTypeXLSX
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"format": "format must be one of [csv xlsx]",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="hasil_ujian_%s.%s"`, examID, ext))
	c.Data(http.StatusOK, contentType, body)
}
