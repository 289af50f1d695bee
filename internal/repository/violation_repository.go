package repository

import (
	"context"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationRepository writes and summarizes the violation audit log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// CopyEvents bulk-inserts events with the COPY protocol.
func (r *ViolationRepository) CopyEvents(ctx context.Context, events []model.ViolationEvent) (int64, error) {
	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_violations"},
		[]string{"session_id", "exam_id", "kind", "violation_number", "recorded_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.SessionID, e.ExamID, e.Kind, e.ViolationNumber, e.RecordedAt}, nil
		}),
	)
}

// Insert writes a single event. Used when a batch COPY fails so that one bad
// row does not drop the rest.
func (r *ViolationRepository) Insert(ctx context.Context, e model.ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_violations (session_id, exam_id, kind, violation_number, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.SessionID, e.ExamID, e.Kind, e.ViolationNumber, e.RecordedAt)
	return err
}

// KindCounts returns, per session of the exam, how many violations of each
// kind were logged.
func (r *ViolationRepository) KindCounts(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, kind, COUNT(*)
		 FROM exam_violations
		 WHERE exam_id = $1
		 GROUP BY session_id, kind`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]map[string]int)
	for rows.Next() {
		var sid uuid.UUID
		var kind string
		var n int
		if err := rows.Scan(&sid, &kind, &n); err != nil {
			return nil, err
		}
		if out[sid] == nil {
			out[sid] = make(map[string]int)
		}
		out[sid][kind] = n
	}
	return out, rows.Err()
}
