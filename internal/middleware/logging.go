// Package middleware provides HTTP middleware for the Lorekeep Echo server.
// Middleware is applied globally (all routes) or per-route group depending
// on the middleware type. See internal/app for registration order.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestIDHeader carries the request correlation id in responses.
const requestIDHeader = "X-Request-ID"

// contextKeyRequestID stores the request id in the Echo context.
const contextKeyRequestID = "request_id"

// RequestLogger returns middleware that assigns each request a correlation
// id and logs it with structured fields: method, path, status, latency,
// and remote IP. Uses Go's built-in slog for structured logging.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Honor an upstream-assigned id, mint one otherwise.
			requestID := c.Request().Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Set(contextKeyRequestID, requestID)
			c.Response().Header().Set(requestIDHeader, requestID)

			err := next(c)

			// Log after the request completes so we have the status code.
			latency := time.Since(start)
			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
			}

			// Log at different levels based on status code.
			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return err
		}
	}
}

// GetRequestID returns the correlation id assigned to the current request.
func GetRequestID(c echo.Context) string {
	id, ok := c.Get(contextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return id
}
