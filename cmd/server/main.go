package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/config"
	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/database"
	"github.com/quizrail/quizrail-backend/internal/handler"
	"github.com/quizrail/quizrail-backend/internal/logger"
	"github.com/quizrail/quizrail-backend/internal/repository"
	"github.com/quizrail/quizrail-backend/internal/router"
	"github.com/quizrail/quizrail-backend/internal/service"
	"github.com/quizrail/quizrail-backend/internal/sink"
	"github.com/quizrail/quizrail-backend/internal/store"
	"github.com/quizrail/quizrail-backend/internal/validator"
	"github.com/quizrail/quizrail-backend/internal/worker"
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
		Msg("Starting QuizRail Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (optional archive) ──────────────────────
	// With no DATABASE_URL the server runs without the result archive:
	// sessions work as usual, the dashboard shows the catalog with empty
	// stats, and finished results go to the sink only.
	var resultRepo *repository.ResultRepository
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		resultRepo = repository.NewResultRepository(pool)
	} else {
		log.Warn().Msg("No DATABASE_URL configured; result archive disabled")
	}

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Content Provider ───────────────────────────────────
	provider := content.NewFileProvider(cfg.ContentDir, log)

	// ─── Initialize Result Sink ────────────────────────────────────────
	var resultSink sink.ResultSink
	if cfg.SinkURL != "" {
		resultSink = sink.NewHTTPSink(cfg.SinkURL, log)
	} else {
		resultSink = sink.NewNoop(log)
	}

	// ─── Initialize Services ───────────────────────────────────────────
	var archiver service.ResultArchiver
	if resultRepo != nil {
		archiver = worker.NewQueueArchiver(rdb)
	}
	tokenService := service.NewTokenService(cfg)
	sessionService := service.NewSessionService(
		provider,
		store.NewRedisStore(rdb),
		resultSink,
		archiver,
		cfg.NavPolicy,
		log,
	)
	dashboardService := service.NewDashboardService(provider, resultRepo, log)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:      handler.NewExamHandler(provider),
		Session:   handler.NewSessionHandler(sessionService, tokenService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		WS:        handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	if resultRepo != nil {
		archiveWorker := worker.NewArchiveWorker(resultRepo, rdb, log)
		go archiveWorker.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, handlers, cfg)

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

	// 2. Stop the archive worker and wait for its queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
