package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth routes on the given Echo instance.
// Register and login are public; the account export requires a session.
// Login-specific rate limiting is enforced inside the service against the
// durable backend, not per-instance middleware, because the deployment
// runs many stateless instances.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	g := e.Group("/auth")

	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.GET("/account/export", h.Export, requireAuth)
}
