package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestRedis spins up an in-process miniredis and returns a Store backed
// by it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisFromClient(client)
}

func TestRedis_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	_, store := newTestRedis(t)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("expected v, got %s", data)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedis_TTLEviction(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)

	if err := store.Put(ctx, "ephemeral", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "ephemeral"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL eviction, got %v", err)
	}
}

func TestRedis_ListPrefix(t *testing.T) {
	ctx := context.Background()
	_, store := newTestRedis(t)

	for _, key := range []string{"user:id:bob", "user:id:alice", "user:email:a@b.com"} {
		if err := store.Put(ctx, key, []byte("v"), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	keys, err := store.List(ctx, "user:id:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	for _, key := range keys {
		if key != "user:id:alice" && key != "user:id:bob" {
			t.Errorf("unexpected key %s", key)
		}
	}
}

func TestRedis_UnreachableBackend(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)
	mr.Close()

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Put(ctx, "k", []byte("v"), 0); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
