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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/router"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
	"github.com/stemsi/exstem-quiz/internal/worker"
)

const janitorInterval = time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.Setup("info", "pretty")
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Bool("persist_results", cfg.PersistResults).
		Msg("Starting Quiz Server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Backends ──────────────────────────────────────────────
	b, err := database.Connect(ctx, cfg, cfg.PersistResults, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect backends")
	}
	defer b.Close()

	// ─── Initialize Store ──────────────────────────────────────────────
	store := repository.OpenStore(cfg.StoreDriver, b)
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("Using in-memory store, preferences are lost on restart")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	tokenService := service.NewTokenService(cfg)
	prefService := service.NewPreferenceService(store, log)
	genClient := generator.NewClient(cfg.Generator, log)
	if !genClient.Configured() {
		log.Warn().Msg("No generator API key, topic generation returns a demo set")
	}
	questionSetService := service.NewQuestionSetService(genClient, log)

	sessionOpts := []service.SessionServiceOption{service.WithIdleTTL(cfg.SessionIdleTTL)}
	if cfg.PersistResults {
		sessionOpts = append(sessionOpts, service.WithResultSink(repository.NewResultQueue(b.Redis)))
	}
	sessionService := service.NewSessionService(prefService, tokenService, log, sessionOpts...)

	// Result history needs PostgreSQL; a typed nil would hide that.
	var resultLister handler.ResultLister
	var resultRepo *repository.ResultRepository
	if b.Pool != nil {
		resultRepo = repository.NewResultRepository(b.Pool)
		resultLister = resultRepo
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	var queueRDB *redis.Client
	if cfg.PersistResults {
		queueRDB = b.Redis
	}
	handlers := &router.Handlers{
		QuestionSet: handler.NewQuestionSetHandler(questionSetService, prefService),
		Preference:  handler.NewPreferenceHandler(prefService),
		Session:     handler.NewSessionHandler(sessionService, questionSetService),
		Result:      handler.NewResultHandler(resultLister, log),
		WS:          handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(sessionService, queueRDB, cfg.StoreDriver, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		sessionService.RunJanitor(workerCtx, janitorInterval)
	}()

	if cfg.PersistResults {
		resultWorker := worker.NewResultWorker(repository.NewResultQueue(b.Redis), resultRepo, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			resultWorker.Start(workerCtx)
		}()
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, tokenService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := newHTTPServer(cfg, r)

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

	// 2. Stop background workers and wait for the result queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Int("sessions_dropped", sessionService.Count()).Msg("Shutdown complete")
}

// newHTTPServer leaves WriteTimeout unset: WebSocket and SSE streams are
// long-lived.
func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
