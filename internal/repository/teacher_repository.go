package repository

import (
	"context"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TeacherRepository handles teacher profile (subscription and quota) data access.
type TeacherRepository struct {
	pool *pgxpool.Pool
}

// NewTeacherRepository creates a new TeacherRepository.
func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

// GetByUserID retrieves the profile of a teacher.
func (r *TeacherRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.TeacherProfile, error) {
	t := &model.TeacherProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, school_name, subscription_tier, subscription_status, subscription_end_date,
		        quota_questions, quota_students, created_at, updated_at
		 FROM teachers WHERE user_id = $1`, userID,
	).Scan(&t.UserID, &t.SchoolName, &t.SubscriptionTier, &t.SubscriptionStatus, &t.SubscriptionEndDate,
		&t.QuotaQuestions, &t.QuotaStudents, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// ActivatePro unconditionally grants the pro tier until endDate. Calling it
// again for the same teacher simply overwrites the window.
func (r *TeacherRepository) ActivatePro(ctx context.Context, userID uuid.UUID, endDate time.Time, quotaQuestions, quotaStudents int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE teachers
		 SET subscription_tier = $1, subscription_status = $2, subscription_end_date = $3,
		     quota_questions = $4, quota_students = $5, updated_at = NOW()
		 WHERE user_id = $6`,
		model.TierPro, model.SubscriptionActive, endDate, quotaQuestions, quotaStudents, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DowngradeExpired moves every pro teacher whose window ended before now back
// to the free quotas and returns how many profiles changed.
func (r *TeacherRepository) DowngradeExpired(ctx context.Context, now time.Time, quotaQuestions, quotaStudents int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE teachers
		 SET subscription_tier = $1, subscription_status = $2,
		     quota_questions = $3, quota_students = $4, updated_at = NOW()
		 WHERE subscription_tier = $5 AND subscription_end_date IS NOT NULL AND subscription_end_date < $6`,
		model.TierFree, model.SubscriptionExpired, quotaQuestions, quotaStudents, model.TierPro, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
