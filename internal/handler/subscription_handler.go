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

// SubscriptionHandler handles pro purchases and Midtrans notifications.
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Create godoc
// POST /api/subscription/create
// Opens a Snap checkout and returns the snap token.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req model.CreateSubscriptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.subscriptionService.Create(c.Request.Context(), middleware.GetClaims(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, sub)
}

// MidtransWebhook godoc
// POST /api/subscription/webhook/midtrans
// Public. Authenticated by the notification's signature_key.
func (h *SubscriptionHandler) MidtransWebhook(c *gin.Context) {
	var n model.PaymentNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	res, err := h.subscriptionService.HandleNotification(c.Request.Context(), &n)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Status godoc
// GET /api/subscription/status/:teacherId
func (h *SubscriptionHandler) Status(c *gin.Context) {
	teacherID, ok := pathUUID(c, "teacherId")
	if !ok {
		return
	}

	profile, err := h.subscriptionService.Status(c.Request.Context(), middleware.GetClaims(c), teacherID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}
