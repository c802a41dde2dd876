package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/database"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/handler"
	"github.com/mariosrafail/english4sp-sub000/internal/logger"
	"github.com/mariosrafail/english4sp-sub000/internal/proctor"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/router"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	"github.com/mariosrafail/english4sp-sub000/internal/validator"
	"github.com/mariosrafail/english4sp-sub000/internal/worker"
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
		Msg("Starting exam backend")

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
	periodRepo := repository.NewExamPeriodRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	gradeRepo := repository.NewGradeRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	examinerRepo := repository.NewExaminerRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	gateService := gate.NewService(sessionRepo, periodRepo, nil)
	authService := service.NewAuthService(examinerRepo, cfg)
	contentService := service.NewContentService(periodRepo, rdb, log)
	proctorService := proctor.NewService(rdb, log)
	sessionService := service.NewSessionService(sessionRepo, answerRepo, contentService, gateService, cfg, rdb, log)
	submissionService := service.NewSubmissionService(sessionRepo, gradeRepo, contentService, gateService, proctorService, rdb, log, nil)
	proctorService.SetSubmitter(submissionService)
	ticketService := service.NewTicketService(ticketRepo, periodRepo, cfg, rdb, log)
	storageService := service.NewStorageService(snapshotRepo, cfg, log)
	gradingService := service.NewGradingService(sessionRepo, gradeRepo, rdb, log)
	monitorService := service.NewMonitorService(sessionRepo, answerRepo, violationRepo, periodRepo, rdb)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Session:  handler.NewSessionHandler(sessionService, submissionService, proctorService),
		Ticket:   handler.NewTicketHandler(ticketService, storageService, gateService),
		Snapshot: handler.NewSnapshotHandler(storageService),
		Grading:  handler.NewGradingHandler(gradingService, periodRepo, violationRepo),
		Monitor:  handler.NewMonitorHandler(monitorService, log),
		WS:       handler.NewWSHandler(sessionService, submissionService, proctorService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(answerRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)
	gradingWorker := worker.NewGradingWorker(gradeRepo, periodRepo, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go gradingWorker.Start(workerCtx)
	go proctorService.Run(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every period's payload into Redis BEFORE accepting traffic, so
	// the opening thundering herd hits warm caches.
	contentService.Prewarm(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, sessionRepo, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
