package abuse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/kv"
)

func TestRateLimiter_AllowsUnderThreshold(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(kv.NewMemory(), 5, 15*time.Minute)

	for i := 0; i < 4; i++ {
		if err := limiter.Check(ctx, "alice@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}

	if err := limiter.Check(ctx, "alice@example.com"); err != nil {
		t.Errorf("expected fifth attempt to pass, got %v", err)
	}
}

func TestRateLimiter_BlocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(kv.NewMemory(), 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	err := limiter.Check(ctx, "alice@example.com")
	if apperror.SafeCode(err) != 429 {
		t.Errorf("expected 429, got %v", err)
	}
}

func TestRateLimiter_IdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(kv.NewMemory(), 2, 15*time.Minute)

	for i := 0; i < 2; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := limiter.Check(ctx, "alice@example.com"); apperror.SafeCode(err) != 429 {
		t.Errorf("expected 429 for exhausted identity, got %v", err)
	}
	if err := limiter.Check(ctx, "bob@example.com"); err != nil {
		t.Errorf("expected untouched identity to pass, got %v", err)
	}
}

func TestRateLimiter_WindowRollover(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	limiter := NewRateLimiter(backend, 3, 15*time.Minute)

	// Plant an exhausted counter whose window elapsed.
	stale := limitEntry{Count: 3, WindowStart: time.Now().UTC().Add(-time.Hour)}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := backend.Put(ctx, limitKeyPrefix+"alice@example.com", data, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := limiter.Check(ctx, "alice@example.com"); err != nil {
		t.Errorf("expected rolled-over window to pass, got %v", err)
	}

	// The next failure starts a fresh window with a count of one.
	if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err = backend.Get(ctx, limitKeyPrefix+"alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entry limitEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("expected fresh window with count 1, got %d", entry.Count)
	}
}
