// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (key-value backend, Echo
// instance) and wires together the identity, session, abuse, and admin
// components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/abuse"
	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/credential"
	"github.com/lorekeep/lorekeep/internal/csrf"
	"github.com/lorekeep/lorekeep/internal/identity"
	"github.com/lorekeep/lorekeep/internal/kv"
	"github.com/lorekeep/lorekeep/internal/middleware"
	"github.com/lorekeep/lorekeep/internal/plugins/admin"
	"github.com/lorekeep/lorekeep/internal/plugins/auth"
	"github.com/lorekeep/lorekeep/internal/session"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// KV is the storage backend selected at startup: Redis when
	// configured, the in-memory fallback otherwise.
	KV kv.Store

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	users    identity.Store
	sessions *session.Store
	authSvc  auth.AuthService
	adminSvc admin.AdminService
}

// New creates a new App instance over the given backend and configures the
// Echo server with global middleware and error handling.
func New(cfg *config.Config, backend kv.Store) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. The rate limiter and the CSRF
	// fingerprint both key off the client IP.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	users := identity.NewStore(backend)
	sessions := session.NewStore(backend, cfg.Auth.SessionTTL)
	guard := abuse.NewGuard(users, cfg.Abuse.MinFormFill, cfg.Abuse.ExtraDisposableDomains)
	limiter := abuse.NewRateLimiter(backend, cfg.Abuse.LoginMaxAttempts, cfg.Abuse.LoginWindow)

	app := &App{
		Config:   cfg,
		KV:       backend,
		Echo:     e,
		users:    users,
		sessions: sessions,
		authSvc:  auth.NewAuthService(users, sessions, guard, limiter),
	}
	app.adminSvc = admin.NewAdminService(users)

	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with correlation id, method,
	// path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- HSTS, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CSRF -- fingerprint-bound token on all state-changing requests.
	// Disabled when no secret is configured, by explicit policy.
	csrfSvc := csrf.New(a.Config.Auth.CSRFSecret, a.Config.Auth.CSRFWindow)
	if !csrfSvc.Enabled() {
		slog.Warn("CSRF protection disabled: no CSRF_SECRET configured")
	}
	a.Echo.Use(middleware.CSRF(csrfSvc))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses with the right status code, and logs the
// internal cause where one exists.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := map[string]string{
		"error":   "internal_error",
		"message": "An unexpected error occurred",
	}

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		body["error"] = appErr.Type
		body["message"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		// Echo's built-in errors (404 from the router, 403 from CSRF).
		code = echoErr.Code
		body["error"] = http.StatusText(code)
		if msg, ok := echoErr.Message.(string); ok {
			body["message"] = msg
		} else {
			body["message"] = http.StatusText(code)
		}
	default:
		// Truly unexpected error -- log it, client sees the generic body.
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if writeErr := c.JSON(code, body); writeErr != nil {
		slog.Error("writing error response", slog.Any("error", writeErr))
	}
}

// SeedUsers applies the configured bootstrap accounts idempotently:
// existing usernames are left untouched, so repeated boots don't churn.
func (a *App) SeedUsers(ctx context.Context) error {
	for _, seed := range a.Config.Auth.SeedUsers {
		if _, err := a.users.GetByID(ctx, seed.Username); err == nil {
			continue
		} else if apperror.SafeCode(err) != 404 {
			return fmt.Errorf("checking seed user %q: %w", seed.Username, err)
		}

		role := identity.Role(seed.Role)
		if !role.Valid() {
			return fmt.Errorf("seed user %q: unknown role %q", seed.Username, seed.Role)
		}

		hash, err := credential.HashPassword(seed.Password)
		if err != nil {
			return fmt.Errorf("hashing seed password: %w", err)
		}

		user := &identity.User{
			ID:             seed.Username,
			Email:          seed.Email,
			PasswordHash:   hash,
			DisplayName:    seed.Username,
			CreatedAt:      time.Now().UTC(),
			EmailConfirmed: true,
		}
		user.SetRole(role)

		if err := a.users.Create(ctx, user); err != nil {
			return fmt.Errorf("creating seed user %q: %w", seed.Username, err)
		}
		slog.Info("seeded user",
			slog.String("user_id", user.ID),
			slog.String("role", string(user.Role)),
		)
	}
	return nil
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Lorekeep identity server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
