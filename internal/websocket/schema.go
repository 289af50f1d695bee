package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSaveAnswer Action = "save_answer"
	ActionViolation  Action = "violation"
	ActionSubmit     Action = "submit"
	ActionPing       Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SaveAnswerRequest stores one answer. Same semantics as the HTTP endpoint.
type SaveAnswerRequest struct {
	Action     Action          `json:"action"`
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
	Status     string          `json:"status" binding:"required,max=32"`
}

// ViolationRequest reports one proctoring violation.
type ViolationRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind" binding:"omitempty,max=64"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation_recorded"
	EventGraded    Event = "graded"
	EventPong      Event = "pong"
)

// Response is the single envelope for every server frame. Data carries the
// event-specific payload.
type Response struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
