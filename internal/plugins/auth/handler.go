package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/session"
)

// Handler handles HTTP requests for authentication. Handlers are thin:
// they bind the request, call the service, and write the response. No
// business logic lives here.
type Handler struct {
	service    AuthService
	sessionTTL time.Duration
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService, sessionTTL time.Duration) *Handler {
	return &Handler{service: service, sessionTTL: sessionTTL}
}

// Register processes a registration attempt (POST /auth/register).
//
// The response for an attempt classified as automated is byte-identical to
// a real success: 201 with the same body shape. The only difference is
// that nothing was persisted, which only the service result knows.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	input := RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Honeypot:    req.Website,
		ClientIP:    c.RealIP(),
	}
	if req.FormTS > 0 {
		input.RenderedAt = time.Unix(req.FormTS, 0)
	}

	if _, err := h.service.Register(c.Request().Context(), input); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"status": "created",
		"id":     req.Username,
	})
}

// Login processes a login attempt (POST /auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token)
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"user":   user,
	})
}

// Logout destroys the session and clears the cookie (POST /auth/logout).
// Always succeeds: logging out without a session is a no-op.
func (h *Handler) Logout(c echo.Context) error {
	if token := getSessionToken(c); token != "" {
		// Clear the cookie regardless of whether the destroy succeeds.
		_ = h.service.Logout(c.Request().Context(), token)
	}
	clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Me reports the current authentication state (GET /auth/me). Always 200:
// an anonymous or failed lookup is authenticated:false, never an error.
func (h *Handler) Me(c echo.Context) error {
	token := getSessionToken(c)
	if token == "" {
		return c.JSON(http.StatusOK, map[string]any{"authenticated": false})
	}

	user, err := h.service.ResolveSession(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusOK, map[string]any{"authenticated": false})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// Export returns the caller's full account record (GET /auth/account/export).
// Requires authentication via the RequireAuth middleware.
func (h *Handler) Export(c echo.Context) error {
	user := GetUser(c)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	export, err := h.service.ExportAccount(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, export)
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and SameSite=Lax.
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
