// Package abuse screens registration and login attempts. Its defining
// design decision is the asymmetric response policy: malformed input and
// policy failures are rejected truthfully (they give an attacker nothing
// beyond "your input was malformed"), while bot-behavior heuristics answer
// with a fake success so a scripted client can't observe that it was
// detected and tune around it.
package abuse

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/credential"
	"github.com/lorekeep/lorekeep/internal/identity"
)

// Decision is the outcome of screening. The external HTTP outcome and the
// internal "anything was persisted" flag are deliberately independent:
// a fake success reports 201 to the client while persisting nothing.
type Decision struct {
	// Allow means the attempt passed every check and may be persisted.
	Allow bool

	// FakeSuccess means the attempt was classified as automated. The
	// caller must respond exactly as if the operation succeeded, and must
	// not persist anything.
	FakeSuccess bool

	// Classification names the heuristic that fired ("honeypot",
	// "timing"). Logged, never sent to the client.
	Classification string

	// Err is the truthful rejection (400 validation, 409 conflict) when
	// the attempt failed an honest check.
	Err *apperror.AppError
}

// RegistrationAttempt is the screened input for an account creation.
type RegistrationAttempt struct {
	Username string
	Email    string
	Password string

	// Honeypot is the hidden form field. Humans leave it empty; naive
	// bots fill it.
	Honeypot string

	// RenderedAt is the client-supplied form render time. Zero when the
	// client sent none.
	RenderedAt time.Time

	// ClientIP is used only for logging classifications.
	ClientIP string
}

// Guard runs the screening pipeline for registrations.
type Guard struct {
	users       identity.Store
	minFillTime time.Duration
	disposable  map[string]struct{}
}

// NewGuard creates a guard. extraDomains extends the built-in disposable
// domain blocklist.
func NewGuard(users identity.Store, minFillTime time.Duration, extraDomains []string) *Guard {
	blocked := make(map[string]struct{}, len(disposableDomains)+len(extraDomains))
	for _, d := range disposableDomains {
		blocked[d] = struct{}{}
	}
	for _, d := range extraDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Guard{
		users:       users,
		minFillTime: minFillTime,
		disposable:  blocked,
	}
}

// ScreenRegistration runs the ordered pipeline:
//
//  1. format/policy validation -- truthful 400 with a field-level reason
//  2. disposable-domain check -- truthful 400, before any store round-trip
//  3. honeypot -- fake success
//  4. timing -- fake success
//  5. uniqueness (email, username) -- truthful 409
func (g *Guard) ScreenRegistration(ctx context.Context, attempt RegistrationAttempt) Decision {
	if v := credential.ValidateEmail(attempt.Email); v != nil {
		return reject(v)
	}
	if v := credential.ValidateUsername(attempt.Username); v != nil {
		return reject(v)
	}
	if v := credential.ValidatePassword(attempt.Password); v != nil {
		return reject(v)
	}

	if _, blocked := g.disposable[emailDomain(attempt.Email)]; blocked {
		return Decision{Err: apperror.NewValidation("email", "disposable email addresses are not allowed")}
	}

	if attempt.Honeypot != "" {
		return g.classify("honeypot", attempt)
	}

	if !attempt.RenderedAt.IsZero() && time.Since(attempt.RenderedAt) < g.minFillTime {
		return g.classify("timing", attempt)
	}

	if _, err := g.users.GetByEmail(ctx, attempt.Email); err == nil {
		return Decision{Err: apperror.NewConflict("an account with this email already exists")}
	} else if apperror.SafeCode(err) != 404 {
		return Decision{Err: asAppError(err)}
	}

	if _, err := g.users.GetByID(ctx, attempt.Username); err == nil {
		return Decision{Err: apperror.NewConflict("this username is already taken")}
	} else if apperror.SafeCode(err) != 404 {
		return Decision{Err: asAppError(err)}
	}

	return Decision{Allow: true}
}

// classify records an automated-attempt detection and returns the
// deceptive-success decision.
func (g *Guard) classify(heuristic string, attempt RegistrationAttempt) Decision {
	slog.Info("registration classified as automated",
		slog.String("heuristic", heuristic),
		slog.String("ip", attempt.ClientIP),
	)
	return Decision{FakeSuccess: true, Classification: heuristic}
}

func reject(v *credential.Violation) Decision {
	return Decision{Err: apperror.NewValidation(v.Field, v.Reason)}
}

func asAppError(err error) *apperror.AppError {
	if appErr, ok := err.(*apperror.AppError); ok {
		return appErr
	}
	return apperror.NewInternal(err)
}
