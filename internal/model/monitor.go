package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorEventType names what happened to a session.
type MonitorEventType string

const (
	MonitorSessionStarted MonitorEventType = "session_started"
	MonitorAnswerSaved    MonitorEventType = "answer_saved"
	MonitorViolation      MonitorEventType = "violation"
	MonitorSubmitted      MonitorEventType = "submitted"
	MonitorForceSubmitted MonitorEventType = "force_submitted"
)

// MonitorEvent is published on the exam's monitor channel and forwarded to
// teachers watching the live monitor stream.
type MonitorEvent struct {
	Type            MonitorEventType `json:"type"`
	ExamID          uuid.UUID        `json:"exam_id"`
	SessionID       uuid.UUID        `json:"session_id"`
	StudentName     string           `json:"student_name,omitempty"`
	StudentClass    string           `json:"student_class,omitempty"`
	Status          SessionStatus    `json:"status"`
	ViolationsCount int              `json:"violations_count"`
	AnsweredCount   int              `json:"answered_count"`
	FinalScore      *float64         `json:"final_score,omitempty"`
	At              time.Time        `json:"at"`
}

// ViolationEvent is an append-only audit record of one reported violation.
type ViolationEvent struct {
	SessionID       uuid.UUID `json:"session_id"`
	ExamID          uuid.UUID `json:"exam_id"`
	Kind            string    `json:"kind"`
	ViolationNumber int       `json:"violation_number"`
	RecordedAt      time.Time `json:"recorded_at"`
}
