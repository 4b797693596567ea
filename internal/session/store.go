// Package session manages opaque-token sessions in the key-value backend.
// A session is created at login, destroyed at logout, and never mutated in
// between. Tokens travel in a cookie; the record lives server-side.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/kv"
)

// CookieName is the HTTP cookie that carries the session token.
const CookieName = "lorekeep_session"

// keyPrefix is the backend key prefix for session records.
const keyPrefix = "session:"

// tokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

// Record is the stored session state. Never mutated after creation.
type Record struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store creates, validates, and destroys sessions.
type Store struct {
	kv  kv.Store
	ttl time.Duration
}

// NewStore creates a session store with the given lifetime.
func NewStore(backend kv.Store, ttl time.Duration) *Store {
	return &Store{kv: backend, ttl: ttl}
}

// Create generates a cryptographically random token, stores the session
// record with the configured TTL, and returns the token for cookie issuance.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating session token: %w", err))
	}

	now := time.Now().UTC()
	record := Record{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("marshaling session: %w", err))
	}

	// The backend TTL handles eviction where supported; ExpiresAt in the
	// record covers backends that don't evict.
	if err := s.kv.Put(ctx, keyPrefix+token, data, s.ttl); err != nil {
		return "", storeErr("storing session", err)
	}

	return token, nil
}

// Validate looks up a session token and returns the owning user id. A
// record past its ExpiresAt is treated as absent but not deleted -- lazy
// expiry, since the backend's own TTL eviction will reclaim it.
func (s *Store) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.NewUnauthorized("session expired or invalid")
	}

	data, err := s.kv.Get(ctx, keyPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return "", apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return "", storeErr("reading session", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}

	if time.Now().After(record.ExpiresAt) {
		return "", apperror.NewUnauthorized("session expired or invalid")
	}

	return record.UserID, nil
}

// Destroy removes a session. Idempotent: destroying an absent or already
// destroyed session is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, keyPrefix+token); err != nil {
		return storeErr("deleting session", err)
	}
	return nil
}

// ParseCookieHeader extracts the session token from a raw Cookie header
// value. Pure parsing, no I/O. Returns "" when the session cookie is absent.
func ParseCookieHeader(header string) string {
	for _, part := range strings.Split(header, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name != CookieName {
			continue
		}
		// Cookie values may arrive quoted.
		return strings.Trim(value, `"`)
	}
	return ""
}

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func storeErr(op string, err error) *apperror.AppError {
	if errors.Is(err, kv.ErrUnavailable) {
		return apperror.NewServiceUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
