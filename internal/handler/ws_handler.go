package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/cbtpro/cbtpro-backend/internal/validator"
	ws "github.com/cbtpro/cbtpro-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam-taking actions of one session over a
// WebSocket. Every action goes through the same service calls as the HTTP
// endpoints.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/student/sessions/:id/stream
// The session must exist and be in progress before the upgrade.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Status.IsTerminal() {
		response.Fail(c, http.StatusBadRequest, response.ErrSessionNotActive)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("exam_id", sess.ExamID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// The request context ends with the upgrade's hijacked connection, so
	// service calls run on a detached context.
	ctx := context.WithoutCancel(c.Request.Context())

	for {
		raw, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ws.WriteError(conn, string(response.ErrValidation), "malformed frame", nil)
			continue
		}

		switch env.Action {
		case ws.ActionSaveAnswer:
			h.handleSaveAnswer(ctx, conn, sessionID, raw)
		case ws.ActionViolation:
			if h.handleViolation(ctx, conn, sessionID, raw) {
				wsLog.Info().Msg("Session force-submitted, closing stream")
				return
			}
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, sessionID) {
				return
			}
		case ws.ActionPing:
			ws.WriteEvent(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(env.Action), nil)
		}
	}
}

func (h *WSHandler) handleSaveAnswer(ctx context.Context, conn *websocket.Conn, sessionID uuid.UUID, raw []byte) {
	var frame ws.SaveAnswerRequest
	if !decodeFrame(conn, raw, &frame) {
		return
	}

	err := h.sessionService.SaveAnswer(ctx, &model.SaveAnswerRequest{
		SessionID:  sessionID,
		QuestionID: frame.QuestionID,
		Answer:     frame.Answer,
		Status:     frame.Status,
	})
	if err != nil {
		h.writeServiceError(conn, err)
		return
	}

	ws.WriteEvent(conn, ws.EventSaved, gin.H{"question_id": frame.QuestionID})
}

// handleViolation reports whether the session ended.
func (h *WSHandler) handleViolation(ctx context.Context, conn *websocket.Conn, sessionID uuid.UUID, raw []byte) bool {
	var frame ws.ViolationRequest
	if !decodeFrame(conn, raw, &frame) {
		return false
	}

	res, err := h.sessionService.ReportViolation(ctx, &model.ReportViolationRequest{
		SessionID: sessionID,
		Kind:      frame.Kind,
	})
	if err != nil {
		h.writeServiceError(conn, err)
		return false
	}

	ws.WriteEvent(conn, ws.EventViolation, res)
	return res.ForceSubmitted
}

// handleSubmit reports whether the session ended.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) bool {
	res, err := h.sessionService.Submit(ctx, sessionID)
	if err != nil {
		h.writeServiceError(conn, err)
		return false
	}

	wsLog.Info().Float64("score", res.FinalScore).Msg("Exam submitted over stream")
	ws.WriteEvent(conn, ws.EventGraded, res)
	return true
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Stream action failed")
	}
	ws.WriteError(conn, string(code), response.GetMessage(code), nil)
}

// decodeFrame unmarshals and validates a frame, answering with a
// VALIDATION_ERROR frame on failure.
func decodeFrame(conn *websocket.Conn, raw []byte, dst interface{}) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		ws.WriteError(conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation), map[string]string{
			"detail": err.Error(),
		})
		return false
	}
	if fields := validator.Struct(dst); fields != nil {
		ws.WriteError(conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation), fields)
		return false
	}
	return true
}
