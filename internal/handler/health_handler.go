package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 3 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports dependency reachability and runtime counters.
type HealthHandler struct {
	db        Pinger
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewHealthHandler(db Pinger, rdb *redis.Client, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "health_handler").Logger(),
	}
}

type healthReport struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	QueueViolations int64 `json:"queue_violations"`
}

// Health godoc
// GET /health
// 200 when Postgres and Redis answer, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:    "ok",
		Postgres:  "ok",
		Redis:     "ok",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		report.Postgres = "down"
		report.Status = "degraded"
	}

	// Ping and queue depth in one round trip.
	pipe := h.rdb.Pipeline()
	pingCmd := pipe.Ping(ctx)
	queueCmd := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
	if _, err := pipe.Exec(ctx); err != nil || pingCmd.Err() != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		report.Redis = "down"
		report.Status = "degraded"
	} else {
		report.QueueViolations, _ = queueCmd.Result()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report.Goroutines = runtime.NumGoroutine()
	report.HeapAlloc = ms.HeapAlloc
	report.NumGC = ms.NumGC

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
