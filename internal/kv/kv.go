// Package kv defines the durable key-value capability that all
// cross-request state (user records, sessions, rate-limit counters) lives
// behind. The serving environment runs many stateless instances, so
// nothing above this interface may assume process-local state survives a
// request.
//
// Two implementations exist: a Redis-backed store for production and an
// in-memory fallback for deployments with no Redis configured. The backend
// is selected once at startup via typed configuration -- never per request.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// ErrUnavailable wraps any transport or infrastructure failure. Callers
// surface it as 503 and never retry at this layer.
var ErrUnavailable = errors.New("kv: backend unavailable")

// Store is the storage contract: per-key last-write-wins, no multi-key
// transactions, prefix listing is a point-in-time (possibly stale)
// snapshot. All operations honor the caller's context deadline.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key. A ttl of zero means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys matching prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
