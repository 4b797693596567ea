package abuse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/kv"
)

// limitKeyPrefix is the backend key prefix for login attempt counters.
const limitKeyPrefix = "ratelimit:login:"

// limitEntry is a fixed-window attempt counter. It lives in the durable
// backend, not process memory, because the serving environment runs many
// stateless instances: a counter that only one instance can see throttles
// nothing.
type limitEntry struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// RateLimiter throttles login attempts per identity (attempted email or
// client IP). Once Count reaches the threshold inside the window, every
// further attempt is rejected until the window elapses -- valid
// credentials included.
type RateLimiter struct {
	kv     kv.Store
	max    int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing max failed attempts per window.
func NewRateLimiter(backend kv.Store, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{kv: backend, max: max, window: window}
}

// Check returns a RateLimited error when the identity has exhausted its
// attempts in the current window. Called before credential verification so
// a blocked identity gets 429 even with the correct password.
func (l *RateLimiter) Check(ctx context.Context, identity string) error {
	entry, err := l.load(ctx, identity)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	if time.Since(entry.WindowStart) > l.window {
		return nil // window rolled over
	}
	if entry.Count >= l.max {
		return apperror.NewRateLimited("too many login attempts, please try again later")
	}
	return nil
}

// RecordFailure counts a failed attempt against the identity, starting a
// fresh window if the previous one elapsed. The read-modify-write is not
// fenced; concurrent failures may undercount, which only ever favors the
// attacker by a request or two.
func (l *RateLimiter) RecordFailure(ctx context.Context, identity string) error {
	now := time.Now().UTC()

	entry, err := l.load(ctx, identity)
	if err != nil {
		return err
	}
	if entry == nil || now.Sub(entry.WindowStart) > l.window {
		entry = &limitEntry{WindowStart: now}
	}
	entry.Count++

	data, err := json.Marshal(entry)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshaling rate-limit entry: %w", err))
	}

	// Keep the key around for two windows so a rolled-over entry is still
	// readable, then let the backend reclaim it.
	if err := l.kv.Put(ctx, limitKeyPrefix+identity, data, 2*l.window); err != nil {
		return limiterErr(err)
	}
	return nil
}

// load fetches the counter for an identity, or nil when none exists.
func (l *RateLimiter) load(ctx context.Context, identity string) (*limitEntry, error) {
	data, err := l.kv.Get(ctx, limitKeyPrefix+identity)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, limiterErr(err)
	}

	var entry limitEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling rate-limit entry: %w", err))
	}
	return &entry, nil
}

func limiterErr(err error) *apperror.AppError {
	if errors.Is(err, kv.ErrUnavailable) {
		return apperror.NewServiceUnavailable(fmt.Errorf("rate limiter: %w", err))
	}
	return apperror.NewInternal(fmt.Errorf("rate limiter: %w", err))
}
