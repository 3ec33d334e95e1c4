package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyashahama/decision-compass-backend/internal/ai"
	"github.com/nyashahama/decision-compass-backend/internal/api"
	"github.com/nyashahama/decision-compass-backend/internal/config"
	"github.com/nyashahama/decision-compass-backend/internal/email"
	"github.com/nyashahama/decision-compass-backend/internal/flow"
	"github.com/nyashahama/decision-compass-backend/internal/session"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "model", cfg.GeminiModel)

	// ── AI ────────────────────────────────────────────────────────────────────
	// The credential is resolved per call, so starting without a key is fine:
	// AI operations fail with missing_credential until one is exported.
	advisor := ai.NewGeminiAdvisor(ai.GeminiConfig{
		Credential:  cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
	}, logger)
	if cfg.GeminiAPIKey() == "" {
		logger.Warn("GEMINI_API_KEY not set — AI calls will fail until it is exported")
	}

	// ── Flow + sessions ───────────────────────────────────────────────────────
	controller := flow.NewController(advisor, logger)
	sessions := session.NewStore(cfg.SessionTTL, logger)

	// ── Email (Resend) ────────────────────────────────────────────────────────
	// Optional: without a key the email endpoint answers 503.
	var mailer email.Sender
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName)
		logger.Info("email: resend configured", "from", cfg.EmailFromAddr)
	} else {
		logger.Info("email: not configured")
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		sessions,
		controller,
		mailer,
		api.Config{Env: cfg.Env},
		logger,
	)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Must outlast the 120s route timeout that covers slow analysis calls.
		WriteTimeout: 125 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Janitor and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep idle sessions in the background until ctx is done.
	go sessions.StartJanitor(ctx, cfg.JanitorInterval)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
