package admin

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the admin user-management routes. The whole group
// sits behind session auth plus the admin role check.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	g := e.Group("/admin/users", requireAuth, RequireAdmin())

	g.GET("/list", h.List)
	g.POST("/create", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
