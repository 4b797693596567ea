package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/csrf"
)

// csrfHeaderName carries the token in both directions: issued on safe
// requests, submitted back on mutating ones.
const csrfHeaderName = "X-CSRF-Token"

// csrfFormField is the form field name for traditional form submissions.
const csrfFormField = "csrf_token"

// countryHeader is the client country code injected by the CDN.
const countryHeader = "CF-IPCountry"

// CSRF returns middleware enforcing fingerprint-bound anti-forgery tokens
// on all state-changing requests (POST, PUT, PATCH, DELETE).
//
// Safe requests receive a fresh token in the X-CSRF-Token response header.
// Mutating requests must echo a token back via the same header or the
// csrf_token form field; the token is recomputed from the requester's
// current fingerprint (IP, country, user agent), so a token replayed from
// a different origin fails verification.
//
// When no secret is configured the service is disabled and every request
// passes -- a deliberate availability-over-strictness tradeoff for
// deployments that haven't provisioned a secret yet.
func CSRF(svc *csrf.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !svc.Enabled() {
				return next(c)
			}

			req := c.Request()
			ip := c.RealIP()
			country := req.Header.Get(countryHeader)
			userAgent := req.UserAgent()

			if isSafeMethod(req.Method) {
				c.Response().Header().Set(csrfHeaderName, svc.Generate(ip, country, userAgent))
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = c.FormValue(csrfFormField)
			}

			if submitted == "" || !svc.Verify(submitted, ip, country, userAgent) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
