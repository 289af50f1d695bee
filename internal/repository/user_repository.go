package repository

import (
	"context"
	"fmt"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, status, created_at`

// UserRepository handles user and teacher profile data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by their unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a user without a teacher profile (superadmin bootstrap).
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// CreateTeacher inserts a user and its teacher profile in one transaction.
func (r *UserRepository) CreateTeacher(ctx context.Context, u *model.User, t *model.TeacherProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	t.UserID = u.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO teachers (user_id, school_name, subscription_tier, subscription_status,
		                       subscription_end_date, quota_questions, quota_students)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		t.UserID, t.SchoolName, t.SubscriptionTier, t.SubscriptionStatus,
		t.SubscriptionEndDate, t.QuotaQuestions, t.QuotaStudents,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert teacher profile: %w", err)
	}

	return tx.Commit(ctx)
}

// ListByStatus returns every user with the given status, newest first.
func (r *UserRepository) ListByStatus(ctx context.Context, status model.UserStatus) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateStatus sets a user's status. Returns ErrNotFound if the user does not exist.
func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTeachers returns every teacher account joined with its profile.
func (r *UserRepository) ListTeachers(ctx context.Context) ([]model.UserWithTeacher, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.status, u.created_at,
		        t.school_name, t.subscription_tier, t.subscription_status, t.subscription_end_date,
		        t.quota_questions, t.quota_students, t.created_at, t.updated_at
		 FROM users u
		 JOIN teachers t ON t.user_id = u.id
		 WHERE u.role = $1
		 ORDER BY u.created_at DESC`, model.RoleTeacher)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.UserWithTeacher{}
	for rows.Next() {
		u := &model.User{}
		t := &model.TeacherProfile{}
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Status, &u.CreatedAt,
			&t.SchoolName, &t.SubscriptionTier, &t.SubscriptionStatus, &t.SubscriptionEndDate,
			&t.QuotaQuestions, &t.QuotaStudents, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		t.UserID = u.ID
		out = append(out, model.UserWithTeacher{User: u, TeacherInfo: t})
	}
	return out, rows.Err()
}
