package handler

import (
	"errors"
	"net/http"

	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// errorStatus maps service errors onto an HTTP status and error code.
var errorStatus = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrInvalidToken, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrInvalidSignature, http.StatusUnauthorized, response.ErrInvalidSignature},

	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrAccountInactive, http.StatusForbidden, response.ErrAccountInactive},
	{service.ErrQuotaExceeded, http.StatusForbidden, response.ErrQuotaExceeded},

	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrInvalidExamToken, http.StatusNotFound, response.ErrInvalidExamToken},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},

	{service.ErrSessionNotActive, http.StatusBadRequest, response.ErrSessionNotActive},
	{service.ErrExamNotActive, http.StatusBadRequest, response.ErrExamNotActive},
	{service.ErrInvalidAnswerShape, http.StatusBadRequest, response.ErrInvalidAnswerShape},
	{service.ErrFreeTierPurchase, http.StatusBadRequest, response.ErrValidation},
	{service.ErrEmailTaken, http.StatusBadRequest, response.ErrValidation},
	{service.ErrExamTokenTaken, http.StatusBadRequest, response.ErrValidation},

	{service.ErrPaymentGateway, http.StatusBadGateway, response.ErrPaymentGateway},
}

// respondError writes the envelope for err. Unknown errors become a 500 and
// are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var notOwned *service.QuestionsNotOwnedError
	if errors.As(err, &notOwned) {
		fields := make(map[string]string, len(notOwned.Missing))
		for _, id := range notOwned.Missing {
			fields[id.String()] = "question not found or not owned"
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrQuestionsNotOwned, fields)
		return
	}
	if field, msg, ok := duplicateField(err); ok {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{field: msg})
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// duplicateField names the request field behind a uniqueness violation.
func duplicateField(err error) (field, msg string, ok bool) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return "email", "email already registered", true
	case errors.Is(err, service.ErrExamTokenTaken):
		return "token", "token already used by an active exam", true
	}
	return "", "", false
}

// classify returns the status and code for err, defaulting to 500.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// pathUUID parses a uuid path parameter. A malformed id cannot name an
// existing resource, so it is answered with 404.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
