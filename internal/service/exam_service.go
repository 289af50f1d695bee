package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Exam errors.
var (
	ErrExamTokenTaken   = errors.New("exam access token already in use")
	ErrInvalidExamToken = errors.New("no exam with this access token")
	ErrExamNotActive    = errors.New("exam is not active")
)

// ExamStore persists exam definitions.
type ExamStore interface {
	Create(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetOwned(ctx context.Context, id, teacherID uuid.UUID) (*model.Exam, error)
	GetByToken(ctx context.Context, token string) (*model.Exam, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Exam, error)
	Delete(ctx context.Context, id, teacherID uuid.UUID) error
}

// QuestionOwnership reports which question ids a teacher owns.
type QuestionOwnership interface {
	OwnedIDs(ctx context.Context, teacherID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
}

// SessionLister lists the sessions of an exam.
type SessionLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error)
}

// ExamService handles exam authoring and the public token check.
type ExamService struct {
	exams     ExamStore
	questions QuestionOwnership
	sessions  SessionLister
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, questions QuestionOwnership, sessions SessionLister, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		sessions:  sessions,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// Create stores a new active exam after checking question ownership and
// token availability.
func (s *ExamService) Create(ctx context.Context, teacherID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	owned, err := s.questions.OwnedIDs(ctx, teacherID, req.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("check question ownership: %w", err)
	}
	ownedSet := make(map[uuid.UUID]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range req.QuestionIDs {
		if _, ok := ownedSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &QuestionsNotOwnedError{Missing: missing}
	}

	// Uniqueness is checked here only; the table has no constraint on token.
	existing, err := s.exams.GetByToken(ctx, req.Token)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if existing != nil && existing.Status == model.ExamStatusActive {
		return nil, ErrExamTokenTaken
	}

	e := &model.Exam{
		ID:              uuid.New(),
		TeacherID:       teacherID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Token:           req.Token,
		QuestionIDs:     req.QuestionIDs,
		Settings:        req.Settings,
		Status:          model.ExamStatusActive,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Str("exam_id", e.ID.String()).Int("questions", len(e.QuestionIDs)).Msg("Exam created")
	return e, nil
}

// List returns the teacher's exams.
func (s *ExamService) List(ctx context.Context, teacherID uuid.UUID) ([]model.Exam, error) {
	return s.exams.ListByTeacher(ctx, teacherID)
}

// GetOwned returns one of the teacher's exams.
func (s *ExamService) GetOwned(ctx context.Context, teacherID, examID uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetOwned(ctx, examID, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// Delete removes one of the teacher's exams.
func (s *ExamService) Delete(ctx context.Context, teacherID, examID uuid.UUID) error {
	if err := s.exams.Delete(ctx, examID, teacherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

// ValidateToken is the unauthenticated gate in front of start-exam. It
// reveals only the exam id, title and duration.
func (s *ExamService) ValidateToken(ctx context.Context, token string) (*model.TokenValidation, error) {
	e, err := s.exams.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidExamToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if e.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}
	return &model.TokenValidation{
		ExamID:          e.ID,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
	}, nil
}

// Sessions lists every session of one of the teacher's exams.
func (s *ExamService) Sessions(ctx context.Context, teacherID, examID uuid.UUID) ([]model.ExamSession, error) {
	if _, err := s.GetOwned(ctx, teacherID, examID); err != nil {
		return nil, err
	}
	return s.sessions.ListByExam(ctx, examID)
}
