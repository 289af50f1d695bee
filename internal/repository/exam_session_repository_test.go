package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool connects to the disposable database named by TEST_DATABASE_URL
// and migrates it to the latest schema.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	m, err := migrate.New("file://../../migrations", dbURL)
	if err != nil {
		t.Fatalf("migrate init: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	m.Close()

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func newSession(t *testing.T, repo *ExamSessionRepository, pool *pgxpool.Pool) *model.ExamSession {
	t.Helper()
	ctx := context.Background()
	s := &model.ExamSession{
		ID:           uuid.New(),
		ExamID:       uuid.New(),
		StudentName:  "Budi",
		StudentClass: "XII IPA 1",
		Token:        "REPO01",
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM exam_sessions WHERE id = $1`, s.ID)
	})
	return s
}

func entry(answer string) model.AnswerEntry {
	raw, _ := json.Marshal(answer)
	return model.AnswerEntry{Answer: raw, Status: "answered"}
}

func TestExamSessionSaveAnswerLastWriteWins(t *testing.T) {
	pool := testPool(t)
	repo := NewExamSessionRepository(pool)
	ctx := context.Background()
	s := newSession(t, repo, pool)
	q := uuid.NewString()

	if _, err := repo.SaveAnswer(ctx, s.ID, q, entry("A")); err != nil {
		t.Fatal(err)
	}
	got, err := repo.SaveAnswer(ctx, s.ID, q, entry("B"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Answers) != 1 || string(got.Answers[q].Answer) != `"B"` {
		t.Errorf("answers = %v, want only %s = \"B\"", got.Answers, q)
	}
}

func TestExamSessionStatusOnlyMovesForward(t *testing.T) {
	pool := testPool(t)
	repo := NewExamSessionRepository(pool)
	ctx := context.Background()
	s := newSession(t, repo, pool)
	q := uuid.NewString()

	if _, err := repo.SaveAnswer(ctx, s.ID, q, entry("A")); err != nil {
		t.Fatal(err)
	}
	done, err := repo.Submit(ctx, s.ID, 75, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done.Status != model.SessionStatusSubmitted || done.FinalScore == nil || *done.FinalScore != 75 || done.SubmittedAt == nil {
		t.Fatalf("after submit = %+v", done)
	}

	tests := []struct {
		name string
		op   func() (*model.ExamSession, error)
	}{
		{"submit again", func() (*model.ExamSession, error) { return repo.Submit(ctx, s.ID, 10, time.Now()) }},
		{"force submit", func() (*model.ExamSession, error) { return repo.ForceSubmit(ctx, s.ID, time.Now()) }},
		{"save answer", func() (*model.ExamSession, error) { return repo.SaveAnswer(ctx, s.ID, q, entry("C")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.op(); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}

	got, err := repo.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.SessionStatusSubmitted || *got.FinalScore != 75 || string(got.Answers[q].Answer) != `"A"` {
		t.Errorf("terminal session changed: %+v", got)
	}

	// The violation counter keeps counting after the session ends.
	bumped, err := repo.IncrementViolations(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if bumped.ViolationsCount != 1 || bumped.Status != model.SessionStatusSubmitted {
		t.Errorf("after violation = %d %s", bumped.ViolationsCount, bumped.Status)
	}
}

func TestExamSessionForceSubmitScoresZero(t *testing.T) {
	pool := testPool(t)
	repo := NewExamSessionRepository(pool)
	ctx := context.Background()
	s := newSession(t, repo, pool)

	got, err := repo.ForceSubmit(ctx, s.ID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.SessionStatusForceSubmitted || got.FinalScore == nil || *got.FinalScore != 0 {
		t.Errorf("after force submit = %+v", got)
	}
	if _, err := repo.Submit(ctx, s.ID, 100, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("submit after force submit: err = %v, want ErrNotFound", err)
	}
}

func TestExamSessionConcurrentTerminalTransitions(t *testing.T) {
	pool := testPool(t)
	repo := NewExamSessionRepository(pool)
	ctx := context.Background()
	s := newSession(t, repo, pool)

	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = repo.Submit(ctx, s.ID, 90, time.Now())
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = repo.ForceSubmit(ctx, s.ID, time.Now())
	}()
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case !errors.Is(err, ErrNotFound):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d transitions succeeded, want exactly 1", won)
	}
}
