package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeWriter struct {
	mu       sync.Mutex
	copyErr  error
	failKind string
	rows     []model.ViolationEvent
	copies   int
}

func (f *fakeWriter) CopyEvents(_ context.Context, events []model.ViolationEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copies++
	f.rows = append(f.rows, events...)
	return int64(len(events)), nil
}

func (f *fakeWriter) Insert(_ context.Context, e model.ViolationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Kind == f.failKind {
		return errors.New("insert failed")
	}
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func event(kind string, n int) model.ViolationEvent {
	return model.ViolationEvent{
		SessionID:       uuid.New(),
		ExamID:          uuid.New(),
		Kind:            kind,
		ViolationNumber: n,
		RecordedAt:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEnqueueViolation(t *testing.T) {
	mr, rdb := newRedis(t)
	q := NewViolationQueue(rdb)

	evt := event("tab_switch", 1)
	if err := q.EnqueueViolation(context.Background(), evt); err != nil {
		t.Fatal(err)
	}

	items, err := mr.List(config.WorkerKey.PersistViolationsQueue)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("queue length = %d, want 1", len(items))
	}
	var got model.ViolationEvent
	if err := json.Unmarshal([]byte(items[0]), &got); err != nil {
		t.Fatal(err)
	}
	if got.SessionID != evt.SessionID || got.Kind != "tab_switch" || !got.RecordedAt.Equal(evt.RecordedAt) {
		t.Errorf("queued = %+v, want %+v", got, evt)
	}
}

func TestViolationWorkerBatchesFromQueue(t *testing.T) {
	_, rdb := newRedis(t)
	q := NewViolationQueue(rdb)
	writer := &fakeWriter{}

	w := NewViolationWorker(rdb, writer, zerolog.Nop())
	w.batchTimeout = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for i := 1; i <= 3; i++ {
		if err := q.EnqueueViolation(ctx, event("blur", i)); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, "3 persisted rows", func() bool { return writer.count() == 3 })
}

func TestViolationWorkerDrainsOnShutdown(t *testing.T) {
	_, rdb := newRedis(t)
	q := NewViolationQueue(rdb)
	writer := &fakeWriter{}

	w := NewViolationWorker(rdb, writer, zerolog.Nop())
	w.batchTimeout = time.Hour

	for i := 1; i <= 2; i++ {
		if err := q.EnqueueViolation(context.Background(), event("blur", i)); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	waitFor(t, "queue drained", func() bool {
		n, err := rdb.LLen(context.Background(), config.WorkerKey.PersistViolationsQueue).Result()
		return err == nil && n == 0
	})
	if writer.count() != 0 {
		t.Fatalf("flushed %d rows before shutdown, want 0", writer.count())
	}

	cancel()
	<-done

	if writer.count() != 2 {
		t.Errorf("rows after shutdown = %d, want 2", writer.count())
	}
}

func TestFlushFallbackRequeuesFailures(t *testing.T) {
	mr, rdb := newRedis(t)
	writer := &fakeWriter{copyErr: errors.New("copy failed"), failKind: "bad"}

	w := NewViolationWorker(rdb, writer, zerolog.Nop())
	w.retryDelay = 0

	w.flushSafe(context.Background(), []model.ViolationEvent{
		event("blur", 1),
		event("bad", 2),
		event("tab_switch", 3),
	})

	if writer.count() != 2 {
		t.Errorf("inserted rows = %d, want 2", writer.count())
	}
	items, err := mr.List(config.WorkerKey.PersistViolationsQueue)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("requeued = %d, want 1", len(items))
	}
	var got model.ViolationEvent
	if err := json.Unmarshal([]byte(items[0]), &got); err != nil {
		t.Fatal(err)
	}
	if got.Kind != "bad" {
		t.Errorf("requeued kind = %q, want bad", got.Kind)
	}
}

type countingExpirer struct {
	calls atomic.Int32
}

func (e *countingExpirer) ExpireLapsed(context.Context) (int64, error) {
	e.calls.Add(1)
	return 1, nil
}

func TestSubscriptionWorkerSweeps(t *testing.T) {
	exp := &countingExpirer{}
	w := NewSubscriptionWorker(exp, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	waitFor(t, "three sweeps", func() bool { return exp.calls.Load() >= 3 })
	cancel()
	<-done
}
