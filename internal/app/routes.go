package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/kv"
	"github.com/lorekeep/lorekeep/internal/plugins/admin"
	"github.com/lorekeep/lorekeep/internal/plugins/auth"
)

// RegisterRoutes sets up all application routes. This is the single place
// where routes are aggregated; each plugin registers its own group.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration. Probes the
	// storage backend with a cheap read; a missing probe key is healthy,
	// an unreachable backend is not.
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if _, err := a.KV.Get(ctx, "healthz:probe"); err != nil && !errors.Is(err, kv.ErrNotFound) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := auth.RequireAuth(a.authSvc)

	authHandler := auth.NewHandler(a.authSvc, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(e, authHandler, requireAuth)

	adminHandler := admin.NewHandler(a.adminSvc)
	admin.RegisterRoutes(e, adminHandler, requireAuth)
}
