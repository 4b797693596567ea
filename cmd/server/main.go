// Package main is the entry point for the Lorekeep identity server. It
// loads configuration, selects the storage backend, wires the application,
// and starts the HTTP server with graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorekeep/lorekeep/internal/app"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/kv"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting Lorekeep",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// --- Select Storage Backend ---
	// The backend is chosen once at startup from typed configuration. A
	// configured but unreachable Redis is a startup failure, not something
	// to silently fall back from.
	var backend kv.Store
	if cfg.Redis.URL != "" {
		backend, err = kv.NewRedis(cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("connected to Redis")
	} else {
		backend = kv.NewMemory()
		slog.Warn("no REDIS_URL configured, using in-memory backend; state will not survive restarts or span instances")
	}

	// --- Create Application ---
	application := app.New(cfg, backend)
	application.RegisterRoutes()

	// Apply bootstrap accounts before accepting traffic.
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := application.SeedUsers(seedCtx); err != nil {
		seedCancel()
		slog.Error("failed to seed users", slog.Any("error", err))
		os.Exit(1)
	}
	seedCancel()

	// --- Graceful Shutdown ---
	// Listen for interrupt/term signals to drain connections cleanly.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	slog.SetDefault(slog.New(handler))
}
