// Package auth handles registration, login, logout, and session resolution
// for Lorekeep. Every registration and login attempt passes through the
// abuse guard before anything touches the store.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"

	"github.com/lorekeep/lorekeep/internal/identity"
)

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted by the registration form.
// Website is the honeypot field: rendered invisibly, humans leave it
// empty. FormTS is the unix-seconds timestamp the form was rendered at.
type RegisterRequest struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"display_name" form:"display_name"`
	Bio         string `json:"bio" form:"bio"`
	Website     string `json:"website" form:"website"`
	FormTS      int64  `json:"form_ts" form:"form_ts"`
}

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the screened input for creating a new user.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Bio         string

	// Honeypot and RenderedAt feed the abuse guard's bot heuristics.
	Honeypot   string
	RenderedAt time.Time

	// ClientIP keys rate limiting and classification logging.
	ClientIP string
}

// RegisterResult separates the external outcome from the internal side
// effect. When the guard classifies an attempt as automated, Persisted is
// false and User is nil, but the HTTP layer still reports success.
type RegisterResult struct {
	User      *identity.User
	Persisted bool
}

// LoginInput is the screened input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// AccountExport is the self-service data export for one account.
type AccountExport struct {
	User       *identity.User `json:"user"`
	ExportedAt time.Time      `json:"exported_at"`
}
