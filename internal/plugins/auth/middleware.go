package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/identity"
)

// contextKeyUser stores the resolved user in the Echo context. Other
// plugins access it via GetUser.
const contextKeyUser = "auth_user"

// RequireAuth returns middleware that validates the session cookie and
// injects the resolved user into the request context. An invalid or
// missing session yields 401; a backend failure during resolution yields
// 503 rather than silently treating the caller as anonymous.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)

			user, err := service.ResolveSession(c.Request().Context(), token)
			if err != nil {
				// Stale cookie for a dead session -- clear it on 401.
				if apperror.SafeCode(err) == 401 {
					clearSessionCookie(c)
				}
				return err
			}

			c.Set(contextKeyUser, user)
			return next(c)
		}
	}
}

// GetUser retrieves the authenticated user from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetUser(c echo.Context) *identity.User {
	user, ok := c.Get(contextKeyUser).(*identity.User)
	if !ok {
		return nil
	}
	return user
}
