package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/database"
	"github.com/cbtpro/cbtpro-backend/internal/handler"
	"github.com/cbtpro/cbtpro-backend/internal/logger"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/payment"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/cbtpro/cbtpro-backend/internal/router"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/cbtpro/cbtpro-backend/internal/validator"
	"github.com/cbtpro/cbtpro-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("midtrans_env", cfg.MidtransEnvironment).
		Msg("Starting CBT Pro Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo, teacherRepo, authService, log)
	quotaService := service.NewQuotaService(teacherRepo, questionRepo)
	questionService := service.NewQuestionService(questionRepo, quotaService)
	examService := service.NewExamService(examRepo, questionRepo, sessionRepo, log)
	monitorService := service.NewMonitorService(rdb, sessionRepo, violationRepo)
	violationQueue := worker.NewViolationQueue(rdb)
	sessionService := service.NewExamSessionService(examRepo, questionRepo, sessionRepo, monitorService, violationQueue, log)
	resultService := service.NewResultService(examService)
	subscriptionService := service.NewSubscriptionService(
		subscriptionRepo,
		teacherRepo,
		userRepo,
		payment.NewMidtransGateway(cfg),
		service.SubscriptionConfig{
			Prices: map[model.SubscriptionTier]int64{model.TierPro: cfg.ProPriceIDR},
			Period: cfg.SubscriptionPeriod,
		},
		log,
	)

	// ─── Bootstrap Superadmin ─────────────────────────────────────────
	created, err := userService.EnsureSuperadmin(ctx, cfg.SuperadminEmail, cfg.SuperadminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure superadmin account")
	}
	if created {
		log.Warn().Str("email", cfg.SuperadminEmail).Msg("Superadmin account created; change its password")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(userService),
		Superadmin:   handler.NewSuperadminHandler(userService),
		Subscription: handler.NewSubscriptionHandler(subscriptionService),
		Question:     handler.NewQuestionHandler(questionService),
		Exam:         handler.NewExamHandler(examService),
		Student:      handler.NewStudentHandler(sessionService),
		Result:       handler.NewResultHandler(resultService),
		Monitor:      handler.NewMonitorHandler(examService, monitorService, log),
		WS:           handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Health:       handler.NewHealthHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	violationWorker := worker.NewViolationWorker(rdb, violationRepo, log)
	subscriptionWorker := worker.NewSubscriptionWorker(subscriptionService, cfg.SubscriptionSweep, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		violationWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		subscriptionWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the violation buffer to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
