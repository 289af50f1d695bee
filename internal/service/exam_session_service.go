package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session errors.
var (
	ErrSessionNotFound  = errors.New("exam session not found")
	ErrSessionNotActive = errors.New("exam session is not in progress")
)

const defaultViolationKind = "unspecified"

// SessionStore persists exam sessions. The mutating calls are conditional
// updates that return repository.ErrNotFound when no row matched.
type SessionStore interface {
	SessionLister
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	SaveAnswer(ctx context.Context, id uuid.UUID, questionID string, entry model.AnswerEntry) (*model.ExamSession, error)
	IncrementViolations(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	ForceSubmit(ctx context.Context, id uuid.UUID, at time.Time) (*model.ExamSession, error)
	Submit(ctx context.Context, id uuid.UUID, score float64, at time.Time) (*model.ExamSession, error)
}

// ExamReader resolves exams for students.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetByToken(ctx context.Context, token string) (*model.Exam, error)
}

// QuestionLister loads questions by id.
type QuestionLister interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// MonitorPublisher fans session events out to live monitors.
type MonitorPublisher interface {
	PublishSessionEvent(ctx context.Context, evt model.MonitorEvent) error
}

// ViolationQueue accepts violation audit events for asynchronous persistence.
type ViolationQueue interface {
	EnqueueViolation(ctx context.Context, evt model.ViolationEvent) error
}

// ExamSessionService runs the session lifecycle:
// in_progress -> submitted | force_submitted.
type ExamSessionService struct {
	exams      ExamReader
	questions  QuestionLister
	sessions   SessionStore
	monitor    MonitorPublisher
	violations ViolationQueue
	log        zerolog.Logger

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// NewExamSessionService creates a new ExamSessionService. monitor and
// violations may be nil.
func NewExamSessionService(
	exams ExamReader,
	questions QuestionLister,
	sessions SessionStore,
	monitor MonitorPublisher,
	violations ViolationQueue,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		exams:      exams,
		questions:  questions,
		sessions:   sessions,
		monitor:    monitor,
		violations: violations,
		log:        log.With().Str("component", "exam_session_service").Logger(),
		now:        time.Now,
		shuffle:    rand.Shuffle,
	}
}

// Start opens a new session for an anonymous student. Each call creates a
// fresh session with its own shuffle.
func (s *ExamSessionService) Start(ctx context.Context, req *model.StartExamRequest) (*model.StartExamResponse, error) {
	exam, err := s.exams.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidExamToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}

	questions, err := s.examQuestions(ctx, exam)
	if err != nil {
		return nil, err
	}

	studentQuestions := make([]model.StudentQuestion, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}
	if exam.Settings.ShuffleQuestions {
		s.shuffle(len(studentQuestions), func(i, j int) {
			studentQuestions[i], studentQuestions[j] = studentQuestions[j], studentQuestions[i]
		})
	}
	if exam.Settings.ShuffleOptions {
		for i := range studentQuestions {
			opts := studentQuestions[i].Options
			s.shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}

	sess := &model.ExamSession{
		ID:           uuid.New(),
		ExamID:       exam.ID,
		StudentName:  req.StudentName,
		StudentClass: req.StudentClass,
		Token:        req.Token,
		Answers:      map[string]model.AnswerEntry{},
		Status:       model.SessionStatusInProgress,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("exam_id", exam.ID.String()).
		Msg("Exam session started")
	s.publish(ctx, model.MonitorSessionStarted, sess)

	return &model.StartExamResponse{
		SessionID:       sess.ID,
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       studentQuestions,
	}, nil
}

// SaveAnswer overwrites the answer for one question. Last write wins.
func (s *ExamSessionService) SaveAnswer(ctx context.Context, req *model.SaveAnswerRequest) error {
	entry := model.AnswerEntry{Answer: req.Answer, Status: req.Status}
	sess, err := s.sessions.SaveAnswer(ctx, req.SessionID, req.QuestionID.String(), entry)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.explainMiss(ctx, req.SessionID)
		}
		return fmt.Errorf("save answer: %w", err)
	}

	s.publish(ctx, model.MonitorAnswerSaved, sess)
	return nil
}

// ReportViolation counts one anti-cheat event. The counter moves whatever the
// status; reaching MaxViolations force-submits an in-progress session with a
// zero score and no grading.
func (s *ExamSessionService) ReportViolation(ctx context.Context, req *model.ReportViolationRequest) (*model.ViolationResult, error) {
	sess, err := s.sessions.IncrementViolations(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("increment violations: %w", err)
	}
	count := sess.ViolationsCount

	s.enqueueViolation(ctx, sess, req.Kind)

	forced := false
	if count >= model.MaxViolations && sess.Status == model.SessionStatusInProgress {
		updated, err := s.sessions.ForceSubmit(ctx, sess.ID, s.now())
		switch {
		case err == nil:
			sess = updated
			forced = true
			s.log.Warn().
				Str("session_id", sess.ID.String()).
				Int("violations", count).
				Msg("Session force-submitted")
		case errors.Is(err, repository.ErrNotFound):
			// A concurrent submit finished the session first.
			if current, gerr := s.sessions.GetByID(ctx, sess.ID); gerr == nil {
				sess = current
			}
		default:
			return nil, fmt.Errorf("force submit: %w", err)
		}
	}
	sess.ViolationsCount = count

	if forced {
		s.publish(ctx, model.MonitorForceSubmitted, sess)
	} else {
		s.publish(ctx, model.MonitorViolation, sess)
	}

	return &model.ViolationResult{
		ViolationsCount: count,
		ForceSubmitted:  sess.Status == model.SessionStatusForceSubmitted,
		Status:          sess.Status,
	}, nil
}

// Submit grades the session and moves it to submitted.
func (s *ExamSessionService) Submit(ctx context.Context, sessionID uuid.UUID) (*model.SubmitResult, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusInProgress {
		return nil, ErrSessionNotActive
	}

	var questions []model.Question
	exam, err := s.exams.GetByID(ctx, sess.ExamID)
	switch {
	case err == nil:
		questions, err = s.examQuestions(ctx, exam)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		s.log.Warn().Str("exam_id", sess.ExamID.String()).Msg("Exam deleted before submit, grading as empty")
	default:
		return nil, fmt.Errorf("get exam: %w", err)
	}

	score := Grade(questions, sess.Answers)

	updated, err := s.sessions.Submit(ctx, sess.ID, score, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotActive
		}
		return nil, fmt.Errorf("submit session: %w", err)
	}

	s.log.Info().
		Str("session_id", updated.ID.String()).
		Float64("score", score).
		Msg("Exam session submitted")
	s.publish(ctx, model.MonitorSubmitted, updated)

	return &model.SubmitResult{FinalScore: score, Status: updated.Status}, nil
}

// Get returns the full session record. The session id is the only credential.
func (s *ExamSessionService) Get(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *ExamSessionService) examQuestions(ctx context.Context, exam *model.Exam) ([]model.Question, error) {
	fetched, err := s.questions.ListByIDs(ctx, exam.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return orderQuestions(exam.QuestionIDs, fetched), nil
}

// explainMiss tells a missing session apart from a finished one after a
// conditional update matched nothing.
func (s *ExamSessionService) explainMiss(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return err
	}
	return ErrSessionNotActive
}

func (s *ExamSessionService) enqueueViolation(ctx context.Context, sess *model.ExamSession, kind string) {
	if s.violations == nil {
		return
	}
	if kind == "" {
		kind = defaultViolationKind
	}
	err := s.violations.EnqueueViolation(ctx, model.ViolationEvent{
		SessionID:       sess.ID,
		ExamID:          sess.ExamID,
		Kind:            kind,
		ViolationNumber: sess.ViolationsCount,
		RecordedAt:      s.now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to queue violation event")
	}
}

// publish never fails the request; a monitor that misses an event catches up
// from the next snapshot.
func (s *ExamSessionService) publish(ctx context.Context, typ model.MonitorEventType, sess *model.ExamSession) {
	if s.monitor == nil {
		return
	}
	evt := model.MonitorEvent{
		Type:            typ,
		ExamID:          sess.ExamID,
		SessionID:       sess.ID,
		StudentName:     sess.StudentName,
		StudentClass:    sess.StudentClass,
		Status:          sess.Status,
		ViolationsCount: sess.ViolationsCount,
		AnsweredCount:   len(sess.Answers),
		FinalScore:      sess.FinalScore,
		At:              s.now().UTC(),
	}
	if err := s.monitor.PublishSessionEvent(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to publish monitor event")
	}
}
