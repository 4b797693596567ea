package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/abuse"
	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/credential"
	"github.com/lorekeep/lorekeep/internal/identity"
	"github.com/lorekeep/lorekeep/internal/sanitize"
	"github.com/lorekeep/lorekeep/internal/session"
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the stores directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (token string, user *identity.User, err error)
	Logout(ctx context.Context, token string) error
	ResolveSession(ctx context.Context, token string) (*identity.User, error)
	ExportAccount(ctx context.Context, userID string) (*AccountExport, error)
}

// authService implements AuthService over the identity and session stores,
// screened by the abuse guard and login rate limiter.
type authService struct {
	users    identity.Store
	sessions *session.Store
	guard    *abuse.Guard
	limiter  *abuse.RateLimiter
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(users identity.Store, sessions *session.Store, guard *abuse.Guard, limiter *abuse.RateLimiter) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		guard:    guard,
		limiter:  limiter,
	}
}

// Register screens the attempt and, if it passes, hashes the password and
// persists the user as a viewer. A fake-success decision returns a result
// with Persisted=false and no error: the handler reports success while
// nothing was written.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	decision := s.guard.ScreenRegistration(ctx, abuse.RegistrationAttempt{
		Username:   input.Username,
		Email:      input.Email,
		Password:   input.Password,
		Honeypot:   input.Honeypot,
		RenderedAt: input.RenderedAt,
		ClientIP:   input.ClientIP,
	})
	if decision.Err != nil {
		return nil, decision.Err
	}
	if decision.FakeSuccess {
		return &RegisterResult{Persisted: false}, nil
	}

	hash, err := credential.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	displayName := sanitize.Text(input.DisplayName)
	if displayName == "" {
		displayName = input.Username
	}

	user := &identity.User{
		ID:           input.Username,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		DisplayName:  displayName,
		Bio:          sanitize.Text(input.Bio),
		CreatedAt:    time.Now().UTC(),
	}
	user.SetRole(identity.RoleViewer)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &RegisterResult{User: user, Persisted: true}, nil
}

// Login authenticates a user by email and password behind the rate
// limiter. A blocked identity is rejected before verification, so correct
// credentials don't bypass the limit. On success it creates a session and
// returns the token for cookie issuance.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *identity.User, error) {
	rateKey := rateIdentity(input.Email, input.ClientIP)

	if err := s.limiter.Check(ctx, rateKey); err != nil {
		return "", nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			// Don't reveal whether the email exists -- count the failure
			// and use the generic message.
			s.recordFailure(ctx, rateKey)
			return "", nil, apperror.NewUnauthorized("invalid email or password")
		}
		return "", nil, err
	}

	if !credential.VerifyPassword(input.Password, user.PasswordHash) {
		s.recordFailure(ctx, rateKey)
		return "", nil, apperror.NewUnauthorized("invalid email or password")
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return token, user, nil
}

// Logout destroys the session. Idempotent.
func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// ResolveSession maps a session token to its user record. A valid token
// whose user has since been deleted counts as unauthenticated.
func (s *authService) ResolveSession(ctx context.Context, token string) (*identity.User, error) {
	userID, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewUnauthorized("session expired or invalid")
		}
		return nil, err
	}
	return user, nil
}

// ExportAccount returns the full stored record for the given user.
func (s *authService) ExportAccount(ctx context.Context, userID string) (*AccountExport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccountExport{User: user, ExportedAt: time.Now().UTC()}, nil
}

// recordFailure counts a failed attempt, logging rather than failing the
// request if the counter write itself fails -- the login response must not
// depend on limiter bookkeeping.
func (s *authService) recordFailure(ctx context.Context, rateKey string) {
	if err := s.limiter.RecordFailure(ctx, rateKey); err != nil {
		slog.Warn("failed to record login failure",
			slog.Any("error", err),
		)
	}
}

// rateIdentity picks the rate-limit key: the attempted email when one was
// submitted (so a distributed attack on a single account is still
// throttled), otherwise the client IP.
func rateIdentity(email, ip string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		return email
	}
	return ip
}
