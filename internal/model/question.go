package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeSentenceOrder  QuestionType = "sentence_order"
)

// Question is owned by exactly one teacher. CorrectAnswer is kept as the raw
// JSON the teacher submitted; its shape depends on QuestionType (see answer.go).
type Question struct {
	ID            uuid.UUID       `json:"question_id"`
	TeacherID     uuid.UUID       `json:"teacher_id"`
	QuestionText  string          `json:"question_text"`
	QuestionType  QuestionType    `json:"question_type"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Points        int             `json:"points"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateQuestionRequest is the payload for authoring a question.
type CreateQuestionRequest struct {
	QuestionText  string          `json:"question_text" binding:"required,max=5000"`
	QuestionType  QuestionType    `json:"question_type" binding:"required,oneof=multiple_choice essay sentence_order"`
	Options       []string        `json:"options" binding:"omitempty,max=20,dive,max=1000"`
	CorrectAnswer json.RawMessage `json:"correct_answer" binding:"required"`
	Points        *int            `json:"points" binding:"omitempty,min=0,max=1000"`
}

// StudentQuestion is the student-facing projection of a question. It never
// carries the correct answer.
type StudentQuestion struct {
	QuestionID   uuid.UUID    `json:"question_id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Options      []string     `json:"options"`
	Points       int          `json:"points"`
}

// ForStudent strips the correct answer and copies the options so callers can
// shuffle them in place.
func (q *Question) ForStudent() StudentQuestion {
	var opts []string
	if len(q.Options) > 0 {
		opts = make([]string, len(q.Options))
		copy(opts, q.Options)
	}
	return StudentQuestion{
		QuestionID:   q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Options:      opts,
		Points:       q.Points,
	}
}
