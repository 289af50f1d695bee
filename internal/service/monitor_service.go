package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ViolationSummarizer aggregates the violation audit log.
type ViolationSummarizer interface {
	KindCounts(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]map[string]int, error)
}

// MonitorStats are the headline counters of a live monitor snapshot.
type MonitorStats struct {
	TotalJoined     int `json:"total_joined"`
	InProgress      int `json:"total_in_progress"`
	Submitted       int `json:"total_submitted"`
	ForceSubmitted  int `json:"total_force_submitted"`
	TotalViolations int `json:"total_violations"`
}

// SessionProgress is one student's row in the live monitor.
type SessionProgress struct {
	SessionID       uuid.UUID           `json:"session_id"`
	StudentName     string              `json:"student_name"`
	StudentClass    string              `json:"student_class"`
	Status          model.SessionStatus `json:"status"`
	AnsweredCount   int                 `json:"answered_count"`
	ViolationsCount int                 `json:"violations_count"`
	ViolationKinds  map[string]int      `json:"violation_kinds,omitempty"`
	FinalScore      *float64            `json:"final_score"`
}

// MonitorSnapshot is sent when a teacher attaches to the live monitor.
type MonitorSnapshot struct {
	Stats    MonitorStats      `json:"stats"`
	Sessions []SessionProgress `json:"sessions"`
}

// MonitorService publishes session events on Redis and builds live monitor
// snapshots.
type MonitorService struct {
	rdb        *redis.Client
	sessions   SessionLister
	violations ViolationSummarizer
}

// NewMonitorService creates a new MonitorService. violations may be nil.
func NewMonitorService(rdb *redis.Client, sessions SessionLister, violations ViolationSummarizer) *MonitorService {
	return &MonitorService{rdb: rdb, sessions: sessions, violations: violations}
}

// PublishSessionEvent sends evt on the exam's monitor channel.
func (s *MonitorService) PublishSessionEvent(ctx context.Context, evt model.MonitorEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}
	channel := config.CacheKey.ExamMonitorChannel(evt.ExamID.String())
	return s.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe attaches to the exam's monitor channel. Callers must Close it.
func (s *MonitorService) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// Snapshot loads sessions and the violation breakdown concurrently. The
// breakdown is best-effort: sessions alone are enough to render the monitor.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		sessions    []model.ExamSession
		kinds       map[uuid.UUID]map[string]int
		sessionsErr error
		wg          sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions, sessionsErr = s.sessions.ListByExam(ctx, examID)
	}()

	if s.violations != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if kinds, err = s.violations.KindCounts(ctx, examID); err != nil {
				kinds = nil
			}
		}()
	}

	wg.Wait()

	if sessionsErr != nil {
		return nil, fmt.Errorf("list sessions: %w", sessionsErr)
	}

	snap := &MonitorSnapshot{Sessions: make([]SessionProgress, 0, len(sessions))}
	for i := range sessions {
		sess := &sessions[i]
		snap.Stats.TotalJoined++
		snap.Stats.TotalViolations += sess.ViolationsCount
		switch sess.Status {
		case model.SessionStatusInProgress:
			snap.Stats.InProgress++
		case model.SessionStatusSubmitted:
			snap.Stats.Submitted++
		case model.SessionStatusForceSubmitted:
			snap.Stats.ForceSubmitted++
		}

		snap.Sessions = append(snap.Sessions, SessionProgress{
			SessionID:       sess.ID,
			StudentName:     sess.StudentName,
			StudentClass:    sess.StudentClass,
			Status:          sess.Status,
			AnsweredCount:   len(sess.Answers),
			ViolationsCount: sess.ViolationsCount,
			ViolationKinds:  kinds[sess.ID],
			FinalScore:      sess.FinalScore,
		})
	}
	return snap, nil
}
