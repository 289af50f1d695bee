package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
)

var ErrInvalidAnswerShape = errors.New("correct answer does not fit question type")

// QuestionStore persists questions.
type QuestionStore interface {
	QuestionCounter
	Create(ctx context.Context, q *model.Question) error
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Question, error)
	Delete(ctx context.Context, id, teacherID uuid.UUID) error
}

// QuestionService handles question authoring.
type QuestionService struct {
	questions QuestionStore
	quota     *QuotaService
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, quota *QuotaService) *QuestionService {
	return &QuestionService{questions: questions, quota: quota}
}

// Create adds a question if the teacher still has quota.
func (s *QuestionService) Create(ctx context.Context, teacherID uuid.UUID, req *model.CreateQuestionRequest) (*model.Question, error) {
	if err := validateQuestionShape(req); err != nil {
		return nil, err
	}

	ok, err := s.quota.CanCreateQuestion(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQuotaExceeded
	}

	points := 1
	if req.Points != nil {
		points = *req.Points
	}

	q := &model.Question{
		ID:            uuid.New(),
		TeacherID:     teacherID,
		QuestionText:  req.QuestionText,
		QuestionType:  req.QuestionType,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        points,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func validateQuestionShape(req *model.CreateQuestionRequest) error {
	if req.QuestionType == model.QuestionTypeMultipleChoice && len(req.Options) == 0 {
		return fmt.Errorf("%w: multiple_choice requires options", ErrInvalidAnswerShape)
	}
	if _, err := model.DecodeAnswer(req.QuestionType, req.CorrectAnswer); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswerShape, err)
	}
	return nil
}

// List returns the teacher's questions.
func (s *QuestionService) List(ctx context.Context, teacherID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByTeacher(ctx, teacherID)
}

// Delete removes one of the teacher's questions.
func (s *QuestionService) Delete(ctx context.Context, teacherID, questionID uuid.UUID) error {
	if err := s.questions.Delete(ctx, questionID, teacherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// CheckQuota exposes the quota policy to the question endpoints.
func (s *QuestionService) CheckQuota(ctx context.Context, teacherID uuid.UUID) (*model.QuotaInfo, error) {
	return s.quota.CheckQuota(ctx, teacherID)
}
