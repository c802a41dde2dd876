package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/handler"
	"github.com/mariosrafail/english4sp-sub000/internal/middleware"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Ticket   *handler.TicketHandler
	Snapshot *handler.SnapshotHandler
	Grading  *handler.GradingHandler
	Monitor  *handler.MonitorHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	sessionRepo *repository.SessionRepository,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderExamToken}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the examiner login (30 requests per minute per IP)
	// and a looser one for snapshot uploads.
	loginLimiter := middleware.NewRateLimiter(30, time.Minute)
	uploadLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Candidate Group (Exam Token) ───────────────────────────────
	// Every gate decision is made per request, so responses must never be
	// replayed from a cache.
	examAPI := router.Group("/api/v1/exam")
	examAPI.Use(
		middleware.RequireCandidateToken(sessionRepo),
		middleware.CacheControl(0),
	)
	{
		examAPI.GET("/state", handlers.Session.State)
		examAPI.POST("/ack", handlers.Session.Ack)
		examAPI.POST("/presence", handlers.Session.Presence)
		examAPI.POST("/proctor-event", handlers.Session.ProctorEvent)
		examAPI.POST("/submit", handlers.Session.Submit)

		examAPI.POST("/listening-ticket", handlers.Ticket.Issue)
		examAPI.GET("/listening-audio", handlers.Ticket.Stream)

		examAPI.POST("/snapshots", uploadLimiter.Middleware(), handlers.Snapshot.Upload)
	}

	// ─── 2. WebSocket Group (Exam Token via query param) ───────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateToken(sessionRepo))
	{
		ws.GET("/exam/stream", handlers.WS.ExamStream)
	}

	// ─── 3. Examiner Auth (Public, Rate Limited) ───────────────────────
	auth := router.Group("/api/v1/examiner")
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
	}

	// ─── 4. Examiner Group (JWT) ───────────────────────────────────────
	examinerAPI := router.Group("/api/v1/examiner")
	examinerAPI.Use(middleware.RequireExaminerJWT(authService))
	{
		examinerAPI.GET("/periods", handlers.Grading.ListPeriods)
		examinerAPI.GET("/periods/:id/results", handlers.Grading.Results)
		examinerAPI.GET("/periods/:id/monitor", handlers.Monitor.Stream)
		examinerAPI.POST("/periods/:id/regrade", handlers.Grading.Regrade)

		examinerAPI.GET("/sessions/:id/grade", handlers.Grading.GetGrade)
		examinerAPI.PUT("/sessions/:id/scores", handlers.Grading.SetScores)
		examinerAPI.GET("/sessions/:id/violations", handlers.Grading.Violations)
		examinerAPI.GET("/sessions/:id/snapshots", handlers.Snapshot.List)
	}

	return router
}
