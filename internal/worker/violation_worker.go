package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWriter persists violation audit rows.
type ViolationWriter interface {
	CopyEvents(ctx context.Context, events []model.ViolationEvent) (int64, error)
	Insert(ctx context.Context, e model.ViolationEvent) error
}

// ViolationQueue is the producer side of the violation log queue.
type ViolationQueue struct {
	rdb *redis.Client
}

func NewViolationQueue(rdb *redis.Client) *ViolationQueue {
	return &ViolationQueue{rdb: rdb}
}

// EnqueueViolation pushes evt for the ViolationWorker to persist.
func (q *ViolationQueue) EnqueueViolation(ctx context.Context, evt model.ViolationEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal violation event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err()
}

// ViolationWorker drains the violation queue into the audit table in
// batches. The session's violation counter is authoritative; this log only
// records kinds and timestamps.
type ViolationWorker struct {
	rdb    *redis.Client
	writer ViolationWriter
	log    zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	retryDelay   time.Duration
}

func NewViolationWorker(rdb *redis.Client, writer ViolationWriter, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		rdb:          rdb,
		writer:       writer,
		log:          log.With().Str("component", "violation_worker").Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		retryDelay:   2 * time.Second,
	}
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]model.ViolationEvent, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleepCtx(ctx, 3*time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var evt model.ViolationEvent
		if err := json.Unmarshal([]byte(result[1]), &evt); err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed violation event")
			continue
		}

		buffer = append(buffer, evt)
	}
}

// flushSafe tries COPY, then row-by-row inserts, then requeues what is left.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []model.ViolationEvent) {
	n, err := w.writer.CopyEvents(ctx, batch)
	if err == nil {
		w.log.Debug().Int64("rows", n).Msg("Violation batch persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	failed := make([]model.ViolationEvent, 0)
	for _, e := range batch {
		if err := w.writer.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("session_id", e.SessionID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, e)
		}
	}

	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []model.ViolationEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue violation events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	sleepCtx(ctx, w.retryDelay)
}

func (w *ViolationWorker) shutdown(buffer []model.ViolationEvent) {
	w.log.Info().Int("pending", len(buffer)).Msg("ViolationWorker stopping, flushing remaining buffer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
