package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam. Authoring only ever
// sets active.
type ExamStatus string

const (
	ExamStatusActive ExamStatus = "active"
)

// ExamSettings controls per-session presentation.
type ExamSettings struct {
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
}

// Exam is a teacher-owned exam definition bound to an ordered question set.
type Exam struct {
	ID              uuid.UUID    `json:"exam_id"`
	TeacherID       uuid.UUID    `json:"teacher_id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	DurationMinutes int          `json:"duration_minutes"`
	Token           string       `json:"token"`
	QuestionIDs     []uuid.UUID  `json:"question_ids"`
	Settings        ExamSettings `json:"settings"`
	Status          ExamStatus   `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string       `json:"title" binding:"required,max=255"`
	Description     *string      `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int          `json:"duration_minutes" binding:"required,min=1,max=600"`
	Token           string       `json:"token" binding:"required,min=4,max=32"`
	QuestionIDs     []uuid.UUID  `json:"question_ids" binding:"required,min=1"`
	Settings        ExamSettings `json:"settings"`
}

// ValidateTokenRequest is the public token lookup payload.
type ValidateTokenRequest struct {
	Token string `json:"token" binding:"required,max=32"`
}

// TokenValidation is everything an unauthenticated caller learns about an exam.
type TokenValidation struct {
	ExamID          uuid.UUID `json:"exam_id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
}
