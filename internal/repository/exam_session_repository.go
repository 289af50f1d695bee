package repository

import (
	"context"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, exam_id, student_name, student_class, token, started_at,
	answers, violations_count, status, submitted_at, final_score`

// ExamSessionRepository handles exam session data access. Every state change
// is a single conditional statement so concurrent requests on one session
// cannot move it backwards.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.ExamID, &s.StudentName, &s.StudentClass, &s.Token, &s.StartedAt,
		&s.Answers, &s.ViolationsCount, &s.Status, &s.SubmittedAt, &s.FinalScore)
	if err != nil {
		return nil, translate(err)
	}
	if s.Answers == nil {
		s.Answers = map[string]model.AnswerEntry{}
	}
	return s, nil
}

// Create inserts a new in-progress session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	if s.Answers == nil {
		s.Answers = map[string]model.AnswerEntry{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, exam_id, student_name, student_class, token, answers, violations_count, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		 RETURNING started_at`,
		s.ID, s.ExamID, s.StudentName, s.StudentClass, s.Token, s.Answers, model.SessionStatusInProgress,
	).Scan(&s.StartedAt)
}

// GetByID retrieves a session by its id.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// ListByExam retrieves every session of an exam in start order.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE exam_id = $1 ORDER BY started_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.ExamSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// SaveAnswer overwrites one answer entry while the session is in progress.
// Returns ErrNotFound when no in-progress session matched.
func (r *ExamSessionRepository) SaveAnswer(ctx context.Context, id uuid.UUID, questionID string, entry model.AnswerEntry) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET answers = jsonb_set(answers, ARRAY[$2::text], $3::jsonb, true)
		 WHERE id = $1 AND status = $4
		 RETURNING `+sessionColumns,
		id, questionID, entry, model.SessionStatusInProgress))
}

// IncrementViolations bumps the counter whatever the status and returns the
// updated row.
func (r *ExamSessionRepository) IncrementViolations(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET violations_count = violations_count + 1
		 WHERE id = $1
		 RETURNING `+sessionColumns, id))
}

// ForceSubmit terminates an in-progress session with a zero score.
// Returns ErrNotFound when the session already left in_progress.
func (r *ExamSessionRepository) ForceSubmit(ctx context.Context, id uuid.UUID, at time.Time) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $2, submitted_at = $3, final_score = 0
		 WHERE id = $1 AND status = $4
		 RETURNING `+sessionColumns,
		id, model.SessionStatusForceSubmitted, at, model.SessionStatusInProgress))
}

// Submit records the graded score of an in-progress session.
// Returns ErrNotFound when the session already left in_progress.
func (r *ExamSessionRepository) Submit(ctx context.Context, id uuid.UUID, score float64, at time.Time) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $2, submitted_at = $3, final_score = $4
		 WHERE id = $1 AND status = $5
		 RETURNING `+sessionColumns,
		id, model.SessionStatusSubmitted, at, score, model.SessionStatusInProgress))
}
