package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/payment"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Subscription errors.
var (
	ErrFreeTierPurchase = errors.New("free tier cannot be purchased")
	ErrInvalidSignature = errors.New("invalid payment notification signature")
	ErrPaymentGateway   = errors.New("payment gateway unavailable")
)

// PaymentGateway opens checkouts and authenticates notifications.
type PaymentGateway interface {
	CreateSnapToken(ctx context.Context, req payment.SnapRequest) (*payment.SnapResult, error)
	VerifySignature(n *model.PaymentNotification) bool
}

// SubscriptionStore persists purchase records.
type SubscriptionStore interface {
	Create(ctx context.Context, s *model.Subscription) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, orderID string, status model.SubscriptionStatus) error
}

// TeacherStore reads and mutates teacher subscription state.
type TeacherStore interface {
	TeacherReader
	ActivatePro(ctx context.Context, userID uuid.UUID, endDate time.Time, quotaQuestions, quotaStudents int) error
	DowngradeExpired(ctx context.Context, now time.Time, quotaQuestions, quotaStudents int) (int64, error)
}

// UserReader reads accounts by id.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// SubscriptionConfig holds pricing and the length of a paid period.
type SubscriptionConfig struct {
	Prices map[model.SubscriptionTier]int64
	Period time.Duration
}

// SubscriptionService bridges Midtrans payments to teacher quotas.
type SubscriptionService struct {
	subs     SubscriptionStore
	teachers TeacherStore
	users    UserReader
	gateway  PaymentGateway
	cfg      SubscriptionConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	subs SubscriptionStore,
	teachers TeacherStore,
	users UserReader,
	gateway PaymentGateway,
	cfg SubscriptionConfig,
	log zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs:     subs,
		teachers: teachers,
		users:    users,
		gateway:  gateway,
		cfg:      cfg,
		log:      log.With().Str("component", "subscription_service").Logger(),
		now:      time.Now,
	}
}

// canActFor lets teachers manage only themselves and superadmins anyone.
func canActFor(actor *Claims, teacherID uuid.UUID) bool {
	if actor == nil {
		return false
	}
	return actor.Role == model.RoleSuperadmin || actor.UserID == teacherID
}

// Create opens a Snap checkout and records a pending subscription.
func (s *SubscriptionService) Create(ctx context.Context, actor *Claims, req *model.CreateSubscriptionRequest) (*model.Subscription, error) {
	if req.PlanTier == model.TierFree {
		return nil, ErrFreeTierPurchase
	}
	if !canActFor(actor, req.TeacherID) {
		return nil, ErrForbidden
	}
	price, ok := s.cfg.Prices[req.PlanTier]
	if !ok {
		return nil, ErrFreeTierPurchase
	}

	if _, err := s.teachers.GetByUserID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}
	user, err := s.users.GetByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	id := uuid.New()
	orderID := "SUB-" + id.String()[:8]

	snap, err := s.gateway.CreateSnapToken(ctx, payment.SnapRequest{
		OrderID:     orderID,
		GrossAmount: price,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		ItemID:      string(req.PlanTier) + "-plan",
		ItemName:    "CBT Pro - Paket Premium",
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("Snap token creation failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	sub := &model.Subscription{
		ID:          id,
		TeacherID:   req.TeacherID,
		OrderID:     orderID,
		PlanTier:    req.PlanTier,
		Status:      model.SubscriptionPending,
		SnapToken:   snap.Token,
		RedirectURL: snap.RedirectURL,
		GrossAmount: price,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.log.Info().Str("order_id", orderID).Str("teacher_id", req.TeacherID.String()).Msg("Subscription checkout opened")
	return sub, nil
}

// HandleNotification applies a Midtrans notification. Unknown orders are
// acknowledged so the gateway stops retrying; repeated deliveries overwrite
// the same state.
func (s *SubscriptionService) HandleNotification(ctx context.Context, n *model.PaymentNotification) (*model.WebhookResult, error) {
	if !s.gateway.VerifySignature(n) {
		s.log.Warn().Str("order_id", n.OrderID).Msg("Rejected notification with invalid signature")
		return nil, ErrInvalidSignature
	}

	newStatus := payment.MapTransactionStatus(n.TransactionStatus)

	sub, err := s.subs.GetByOrderID(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info().Str("order_id", n.OrderID).Msg("Notification for unknown order acknowledged")
			return &model.WebhookResult{Status: "acknowledged"}, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	if err := s.subs.UpdateStatus(ctx, n.OrderID, newStatus); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	if newStatus == model.SubscriptionActive {
		end := s.now().UTC().Add(s.cfg.Period)
		if err := s.teachers.ActivatePro(ctx, sub.TeacherID, end, UnlimitedQuota, UnlimitedQuota); err != nil {
			return nil, fmt.Errorf("activate pro: %w", err)
		}
		s.log.Info().
			Str("order_id", n.OrderID).
			Str("teacher_id", sub.TeacherID.String()).
			Time("ends_at", end).
			Msg("Pro subscription activated")
	}

	return &model.WebhookResult{Status: "success"}, nil
}

// Status returns a teacher's subscription profile.
func (s *SubscriptionService) Status(ctx context.Context, actor *Claims, teacherID uuid.UUID) (*model.TeacherProfile, error) {
	if !canActFor(actor, teacherID) {
		return nil, ErrForbidden
	}
	t, err := s.teachers.GetByUserID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}
	return t, nil
}

// ExpireLapsed downgrades pro teachers whose paid period has ended.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.teachers.DowngradeExpired(ctx, s.now().UTC(), FreeQuotaQuestions, FreeQuotaStudents)
	if err != nil {
		return 0, fmt.Errorf("downgrade expired: %w", err)
	}
	return n, nil
}
