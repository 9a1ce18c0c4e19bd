package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/config"
	"github.com/pathlight/assessment-backend/internal/database"
	"github.com/pathlight/assessment-backend/internal/engine"
	"github.com/pathlight/assessment-backend/internal/handler"
	"github.com/pathlight/assessment-backend/internal/logger"
	"github.com/pathlight/assessment-backend/internal/recommend"
	"github.com/pathlight/assessment-backend/internal/router"
	"github.com/pathlight/assessment-backend/internal/service"
	"github.com/pathlight/assessment-backend/internal/store"
	"github.com/pathlight/assessment-backend/internal/validator"
	"github.com/pathlight/assessment-backend/internal/worker"
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
		Msg("Starting Pathlight Assessment Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Question Bank ────────────────────────────────────────────
	questionBank, err := bank.Load(cfg.TestBankDir, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.TestBankDir).Msg("Failed to load question bank")
	}

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

	// ─── Initialize Store and Engine ──────────────────────────────────
	sessionStore := store.NewPostgresStore(pool)
	resultCache := store.NewRedisResultCache(rdb)

	var recommender recommend.Provider
	if cfg.OpenAIKey != "" {
		recommender, err = recommend.NewOpenAIProvider(cfg.OpenAIKey, "")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize recommendation provider")
		}
		log.Info().Msg("Recommendation provider enabled")
	}

	scorer := engine.NewScorer(engine.Thresholds{
		Advanced:     cfg.AdvancedThreshold,
		Intermediate: cfg.IntermediateThreshold,
	})
	eng := engine.NewEngine(questionBank, sessionStore, scorer, resultCache, recommender, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	timers := worker.NewTimerController(eng.ExpireSession, cfg.TimerMaxAttempts, cfg.TimerRetryBase, log)
	eng.SetScheduler(timers)
	sweep := worker.NewSweepWorker(sessionStore, rdb, eng.ExpireSession, cfg.SweepInterval, log)

	go timers.Start(workerCtx)
	go sweep.Start(workerCtx)

	// ─── Initialize Services and Handlers ─────────────────────────────
	authService := service.NewAuthService(cfg)

	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Assessment: handler.NewAssessmentHandler(eng),
		WS:         handler.NewWSHandler(eng, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 2. Stop the timers and the sweep. Interrupted sessions are picked
	// up by the sweep on the next start.
	workerCancel()
	time.Sleep(time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
