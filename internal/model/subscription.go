package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is one purchase attempt through the payment gateway.
type Subscription struct {
	ID          uuid.UUID          `json:"subscription_id"`
	TeacherID   uuid.UUID          `json:"teacher_id"`
	OrderID     string             `json:"order_id"`
	PlanTier    SubscriptionTier   `json:"plan_tier"`
	Status      SubscriptionStatus `json:"status"`
	SnapToken   string             `json:"snap_token"`
	RedirectURL string             `json:"redirect_url,omitempty"`
	GrossAmount int64              `json:"gross_amount"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CreateSubscriptionRequest starts a purchase for a teacher.
type CreateSubscriptionRequest struct {
	TeacherID uuid.UUID        `json:"teacher_id" binding:"required"`
	PlanTier  SubscriptionTier `json:"plan_tier" binding:"required,oneof=free pro"`
}

// PaymentNotification is the subset of the Midtrans HTTP notification body
// the webhook needs.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// WebhookResult is the acknowledgement returned to the gateway.
type WebhookResult struct {
	Status string `json:"status"`
}
