package model

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPro  SubscriptionTier = "pro"
)

// SubscriptionStatus is shared by teacher profiles and purchase records.
type SubscriptionStatus string

const (
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// TeacherProfile holds the subscription tier and the quotas derived from it.
type TeacherProfile struct {
	UserID              uuid.UUID          `json:"user_id"`
	SchoolName          *string            `json:"school_name"`
	SubscriptionTier    SubscriptionTier   `json:"subscription_tier"`
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status"`
	SubscriptionEndDate *time.Time         `json:"subscription_end_date"`
	QuotaQuestions      int                `json:"quota_questions"`
	QuotaStudents       int                `json:"quota_students"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// QuotaInfo is the result of a quota check.
type QuotaInfo struct {
	Used      int `json:"used"`
	Quota     int `json:"quota"`
	Remaining int `json:"remaining"`
}
