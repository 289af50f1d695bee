package repository

import (
	"context"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles purchase record data access.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Create inserts a pending subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, s *model.Subscription) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (id, teacher_id, order_id, plan_tier, status, snap_token, redirect_url, gross_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		s.ID, s.TeacherID, s.OrderID, s.PlanTier, s.Status, s.SnapToken, s.RedirectURL, s.GrossAmount,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	return err
}

// GetByOrderID retrieves a subscription by its gateway order id.
func (r *SubscriptionRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, order_id, plan_tier, status, snap_token, redirect_url, gross_amount, created_at, updated_at
		 FROM subscriptions WHERE order_id = $1`, orderID,
	).Scan(&s.ID, &s.TeacherID, &s.OrderID, &s.PlanTier, &s.Status, &s.SnapToken, &s.RedirectURL,
		&s.GrossAmount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// UpdateStatus overwrites the status of a subscription.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, orderID string, status model.SubscriptionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE order_id = $2`, status, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
