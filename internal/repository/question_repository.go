package repository

import (
	"context"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, teacher_id, question_text, question_type, options, correct_answer, points, created_at`

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TeacherID, &q.QuestionText, &q.QuestionType,
			&q.Options, &q.CorrectAnswer, &q.Points, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question. Options and correct answer are stored as JSONB.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (id, teacher_id, question_text, question_type, options, correct_answer, points)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		q.ID, q.TeacherID, q.QuestionText, q.QuestionType, q.Options, q.CorrectAnswer, q.Points,
	).Scan(&q.CreatedAt)
}

// ListByTeacher retrieves every question the teacher owns, newest first.
func (r *QuestionRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListByIDs retrieves the questions that still exist among ids, in no particular order.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// OwnedIDs returns the subset of ids that exist and belong to the teacher.
func (r *QuestionRepository) OwnedIDs(ctx context.Context, teacherID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE teacher_id = $1 AND id = ANY($2::uuid[])`,
		teacherID, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owned []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned = append(owned, id)
	}
	return owned, rows.Err()
}

// CountByTeacher returns how many questions the teacher owns.
func (r *QuestionRepository) CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE teacher_id = $1`, teacherID).Scan(&n)
	return n, err
}

// Delete removes a question owned by the teacher. Exams referencing it keep
// the dangling id; grading skips it.
func (r *QuestionRepository) Delete(ctx context.Context, id, teacherID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
