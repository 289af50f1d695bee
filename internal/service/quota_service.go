package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
)

// Tier quotas. Pro is "unlimited" in practice.
const (
	FreeQuotaQuestions = 20
	FreeQuotaStudents  = 10
	UnlimitedQuota     = 999999
)

var ErrQuotaExceeded = errors.New("question quota exceeded")

// QuestionCounter counts a teacher's questions.
type QuestionCounter interface {
	CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error)
}

// QuotaService answers quota questions for a teacher. The check is not a
// reservation: two concurrent creations can both pass it.
type QuotaService struct {
	teachers  TeacherReader
	questions QuestionCounter
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(teachers TeacherReader, questions QuestionCounter) *QuotaService {
	return &QuotaService{teachers: teachers, questions: questions}
}

// CheckQuota returns used, allowed and remaining question counts.
func (s *QuotaService) CheckQuota(ctx context.Context, teacherID uuid.UUID) (*model.QuotaInfo, error) {
	profile, err := s.teachers.GetByUserID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}

	used, err := s.questions.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	return &model.QuotaInfo{
		Used:      used,
		Quota:     profile.QuotaQuestions,
		Remaining: profile.QuotaQuestions - used,
	}, nil
}

// CanCreateQuestion reports whether used < allowed.
func (s *QuotaService) CanCreateQuestion(ctx context.Context, teacherID uuid.UUID) (bool, error) {
	q, err := s.CheckQuota(ctx, teacherID)
	if err != nil {
		return false, err
	}
	return q.Used < q.Quota, nil
}
