package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/middleware"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // a slow snapshot must not hold the stream open forever
)

var pingPayload = []byte(`{"type":"ping"}`)

type MonitorHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// StreamLiveMonitor godoc
// GET /api/exams/:id/live-monitor/stream
// Server-sent events: one snapshot, then every session event of the exam.
func (h *MonitorHandler) StreamLiveMonitor(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetOwned(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		respondError(c, err)
		return
	}

	reqCtx := c.Request.Context()

	// Subscribe before the snapshot so nothing published while it loads is
	// lost. Receive blocks until Redis confirms the subscription.
	pubsub := h.monitorService.Subscribe(reqCtx, examID)
	defer pubsub.Close()

	snapCtx, cancel := context.WithTimeout(reqCtx, snapshotTimeout)
	defer cancel()
	if _, err := pubsub.Receive(snapCtx); err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.monitorService.Snapshot(snapCtx, examID)
	if err != nil {
		respondError(c, err)
		return
	}
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam": gin.H{
				"id":              exam.ID,
				"title":           exam.Title,
				"duration":        exam.DurationMinutes,
				"total_questions": len(exam.QuestionIDs),
			},
			"stats":    snap.Stats,
			"sessions": snap.Sessions,
		},
	})
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	log := h.log.With().Str("exam_id", examID.String()).Logger()
	log.Info().Msg("Teacher attached to live monitor")

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Teacher detached from live monitor")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			// Payloads are already JSON; forward them untouched.
			writeSSEData(c, []byte(msg.Payload))

		case <-keepAlive.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func writeSSEData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
