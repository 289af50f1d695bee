package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. Submitted and force-submitted
// are terminal.
type SessionStatus string

const (
	SessionStatusInProgress     SessionStatus = "in_progress"
	SessionStatusSubmitted      SessionStatus = "submitted"
	SessionStatusForceSubmitted SessionStatus = "force_submitted"
)

// MaxViolations is the violation count at which a session is force-submitted.
const MaxViolations = 3

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusForceSubmitted
}

// AnswerEntry is the last saved answer for one question.
type AnswerEntry struct {
	Answer json.RawMessage `json:"answer"`
	Status string          `json:"status"`
}

// ExamSession is one anonymous student's attempt at an exam. The ID is a
// random v4 UUID and is the only credential for the public session endpoints.
type ExamSession struct {
	ID              uuid.UUID              `json:"session_id"`
	ExamID          uuid.UUID              `json:"exam_id"`
	StudentName     string                 `json:"student_name"`
	StudentClass    string                 `json:"student_class"`
	Token           string                 `json:"token"`
	StartedAt       time.Time              `json:"started_at"`
	Answers         map[string]AnswerEntry `json:"answers"`
	ViolationsCount int                    `json:"violations_count"`
	Status          SessionStatus          `json:"status"`
	SubmittedAt     *time.Time             `json:"submitted_at"`
	FinalScore      *float64               `json:"final_score"`
}

// StartExamRequest is the payload a student sends to begin an attempt.
type StartExamRequest struct {
	StudentName  string `json:"student_name" binding:"required,max=100"`
	StudentClass string `json:"student_class" binding:"required,max=50"`
	Token        string `json:"token" binding:"required,max=32"`
}

// StartExamResponse carries the new session id and the student question list.
type StartExamResponse struct {
	SessionID       uuid.UUID         `json:"session_id"`
	ExamID          uuid.UUID         `json:"exam_id"`
	Title           string            `json:"title"`
	DurationMinutes int               `json:"duration_minutes"`
	Questions       []StudentQuestion `json:"questions"`
}

// SaveAnswerRequest overwrites the answer for one question.
type SaveAnswerRequest struct {
	SessionID  uuid.UUID       `json:"session_id" binding:"required"`
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
	Status     string          `json:"status" binding:"required,max=32"`
}

// ReportViolationRequest records one anti-cheat event. Kind is an optional
// client label such as tab_switch.
type ReportViolationRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Kind      string    `json:"kind" binding:"omitempty,max=64"`
}

type SubmitExamRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
}

// ViolationResult is returned by report-violation.
type ViolationResult struct {
	ViolationsCount int           `json:"violations_count"`
	ForceSubmitted  bool          `json:"force_submitted"`
	Status          SessionStatus `json:"status"`
}

// SubmitResult is returned by submit.
type SubmitResult struct {
	FinalScore float64       `json:"final_score"`
	Status     SessionStatus `json:"status"`
}
