package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory()
	store.Now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "v" {
		t.Fatalf("expected v, got %s", value)
	}

	now = now.Add(time.Hour)
	if _, err := store.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "a"); err != ErrMiss {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx := context.Background()
	if _, err := store.Get(ctx, "absent"); err != ErrMiss {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "v" {
		t.Fatalf("expected v, got %s", value)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}
