package repository

import (
	"context"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const examColumns = `id, teacher_id, title, description, duration_minutes, token, question_ids, settings, status, created_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Description, &e.DurationMinutes,
		&e.Token, &e.QuestionIDs, &e.Settings, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, teacher_id, title, description, duration_minutes, token, question_ids, settings, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		e.ID, e.TeacherID, e.Title, e.Description, e.DurationMinutes,
		e.Token, e.QuestionIDs, e.Settings, e.Status,
	).Scan(&e.CreatedAt)
}

// GetByID retrieves an exam by its UUID regardless of owner.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetOwned retrieves an exam only if the teacher owns it.
func (r *ExamRepository) GetOwned(ctx context.Context, id, teacherID uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 AND teacher_id = $2`, id, teacherID))
}

// GetByToken resolves an access token. Tokens are not unique at the store
// level, so the most recently created exam wins.
func (r *ExamRepository) GetByToken(ctx context.Context, token string) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE token = $1 ORDER BY created_at DESC LIMIT 1`, token))
}

// ListByTeacher retrieves every exam the teacher owns, newest first.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Delete removes an exam owned by the teacher. Its sessions are kept.
func (r *ExamRepository) Delete(ctx context.Context, id, teacherID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
