package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/kv"
)

func TestStore_CreateValidateDestroy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemory(), time.Hour)

	token, err := store.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(token))
	}

	userID, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "alice" {
		t.Errorf("expected alice, got %s", userID)
	}

	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Validate(ctx, token); apperror.SafeCode(err) != 401 {
		t.Errorf("expected 401 after destroy, got %v", err)
	}
}

func TestStore_ValidateUnknownToken(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemory(), time.Hour)

	if _, err := store.Validate(ctx, "deadbeef"); apperror.SafeCode(err) != 401 {
		t.Errorf("expected 401, got %v", err)
	}
	if _, err := store.Validate(ctx, ""); apperror.SafeCode(err) != 401 {
		t.Errorf("expected 401 for empty token, got %v", err)
	}
}

func TestStore_ValidateExpiredRecord(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	store := NewStore(backend, time.Hour)

	// Plant a record that is past its ExpiresAt but not yet evicted,
	// mimicking a backend without TTL support.
	record := Record{
		UserID:    "alice",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := backend.Put(ctx, keyPrefix+"stale", data, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Validate(ctx, "stale"); apperror.SafeCode(err) != 401 {
		t.Errorf("expected 401 for expired record, got %v", err)
	}
}

func TestStore_DestroyIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemory(), time.Hour)

	if err := store.Destroy(ctx, "never-existed"); err != nil {
		t.Errorf("expected nil for absent token, got %v", err)
	}
	if err := store.Destroy(ctx, ""); err != nil {
		t.Errorf("expected nil for empty token, got %v", err)
	}
}

func TestStore_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemory(), time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := store.Create(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}

func TestParseCookieHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"only session cookie", CookieName + "=abc123", "abc123"},
		{"among other cookies", "theme=dark; " + CookieName + "=abc123; lang=en", "abc123"},
		{"quoted value", CookieName + `="abc123"`, "abc123"},
		{"absent", "theme=dark; lang=en", ""},
		{"empty header", "", ""},
		{"name prefix does not match", CookieName + "_old=abc123", ""},
		{"no value separator", CookieName, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCookieHeader(tt.header); got != tt.want {
				t.Errorf("ParseCookieHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
