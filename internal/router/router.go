package router

import (
	"context"
	"strings"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/handler"
	"github.com/cbtpro/cbtpro-backend/internal/logger"
	"github.com/cbtpro/cbtpro-backend/internal/middleware"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Superadmin   *handler.SuperadminHandler
	Subscription *handler.SubscriptionHandler
	Question     *handler.QuestionHandler
	Exam         *handler.ExamHandler
	Student      *handler.StudentHandler
	Result       *handler.ResultHandler
	Monitor      *handler.MonitorHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the lifetime of the rate limiters' cleanup goroutines.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the logger and every envelope can see it.
	router.Use(response.RequestIDMiddleware())
	router.Use(logger.GinMiddleware(log))

	// XLSX exports are already zip-compressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Skip: func(c *gin.Context) bool {
			return strings.HasPrefix(c.Request.URL.Path, "/api/results/export/")
		},
	}))

	router.GET("/health", handlers.Health.Health)

	// Per-IP limiter for credential and token guessing. Student session
	// routes stay unthrottled: a whole lab shares one NAT address.
	publicLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimit, time.Minute)

	api := router.Group("/api")

	// ─── 1. Auth ───────────────────────────────────────────────────────
	authAPI := api.Group("/auth")
	{
		authAPI.POST("/register", publicLimiter.Middleware(), handlers.Auth.Register)
		authAPI.POST("/login", publicLimiter.Middleware(), handlers.Auth.Login)
		authAPI.GET("/me", middleware.RequireAuth(auth), handlers.Auth.Me)
	}

	// ─── 2. Superadmin ─────────────────────────────────────────────────
	superadminAPI := api.Group("/superadmin")
	superadminAPI.Use(middleware.RequireAuth(auth), middleware.RequireRole(model.RoleSuperadmin))
	{
		superadminAPI.GET("/pending-users", handlers.Superadmin.PendingUsers)
		superadminAPI.POST("/approve-user/:id", handlers.Superadmin.ApproveUser)
		superadminAPI.POST("/reject-user/:id", handlers.Superadmin.RejectUser)
		superadminAPI.GET("/all-teachers", handlers.Superadmin.AllTeachers)
	}

	// ─── 3. Subscription ───────────────────────────────────────────────
	subscriptionAPI := api.Group("/subscription")
	{
		// Midtrans calls this; the signature is the authentication.
		subscriptionAPI.POST("/webhook/midtrans", handlers.Subscription.MidtransWebhook)

		subscriptionAPI.POST("/create",
			middleware.RequireAuth(auth),
			middleware.RequireRole(model.RoleTeacher, model.RoleSuperadmin),
			handlers.Subscription.Create,
		)
		subscriptionAPI.GET("/status/:teacherId",
			middleware.RequireAuth(auth),
			middleware.RequireRole(model.RoleTeacher, model.RoleSuperadmin),
			handlers.Subscription.Status,
		)
	}

	// ─── 4. Teacher: questions ─────────────────────────────────────────
	teacherOnly := []gin.HandlerFunc{middleware.RequireAuth(auth), middleware.RequireRole(model.RoleTeacher)}

	questionsAPI := api.Group("/questions", teacherOnly...)
	{
		questionsAPI.POST("/create", handlers.Question.CreateQuestion)
		questionsAPI.GET("/list", handlers.Question.ListQuestions)
		questionsAPI.GET("/check-quota", handlers.Question.CheckQuota)
		questionsAPI.DELETE("/:id", handlers.Question.DeleteQuestion)
	}

	// ─── 5. Exams ──────────────────────────────────────────────────────
	examsAPI := api.Group("/exams")
	{
		examsAPI.POST("/validate-token", publicLimiter.Middleware(), handlers.Exam.ValidateToken)

		teacherExams := examsAPI.Group("", teacherOnly...)
		teacherExams.POST("/create", handlers.Exam.CreateExam)
		teacherExams.GET("/list", handlers.Exam.ListExams)
		teacherExams.GET("/:id", handlers.Exam.GetExam)
		teacherExams.DELETE("/:id", handlers.Exam.DeleteExam)
		teacherExams.GET("/:id/live-monitor", handlers.Exam.LiveMonitor)
		teacherExams.GET("/:id/live-monitor/stream", handlers.Monitor.StreamLiveMonitor)
	}

	// ─── 6. Student (anonymous, session id as credential) ──────────────
	studentAPI := api.Group("/student")
	studentAPI.Use(middleware.NoStore())
	{
		studentAPI.POST("/start-exam", handlers.Student.StartExam)
		studentAPI.POST("/save-answer", handlers.Student.SaveAnswer)
		studentAPI.POST("/report-violation", handlers.Student.ReportViolation)
		studentAPI.POST("/submit-exam", handlers.Student.SubmitExam)
		studentAPI.GET("/session/:id", handlers.Student.GetSession)
	}

	// ─── 7. Results ────────────────────────────────────────────────────
	resultsAPI := api.Group("/results", teacherOnly...)
	{
		resultsAPI.GET("/exam/:examId", handlers.Result.ExamResults)
		resultsAPI.GET("/export/:examId", handlers.Result.Export)
	}

	// ─── 8. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.NoStore())
	{
		ws.GET("/student/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
