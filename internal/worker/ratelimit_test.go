package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client), mr
}

func TestAllow_UnderLimit(t *testing.T) {
	rl, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestAllow_OverLimit(t *testing.T) {
	rl, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900)
	}
	if rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900) {
		t.Error("6th request in the window should be denied")
	}
}

func TestAllow_KeysAreIsolated(t *testing.T) {
	rl, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900)
	}
	if !rl.Allow(ctx, "subscribe", "198.51.100.7", 5, 900) {
		t.Error("a different IP must have its own window")
	}
	if !rl.Allow(ctx, "admin", "203.0.113.9", 10, 3600) {
		t.Error("a different prefix must have its own window")
	}
}

func TestAllow_WindowExpires(t *testing.T) {
	rl, mr := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900)
	}
	if rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900) {
		t.Fatal("expected denial before window expiry")
	}

	mr.FastForward(901 * time.Second) // advance past the 900s window

	if !rl.Allow(ctx, "subscribe", "203.0.113.9", 5, 900) {
		t.Error("request after window expiry should be allowed")
	}
}

func TestAllow_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRateLimiter(client)
	mr.Close()

	if !rl.Allow(context.Background(), "subscribe", "203.0.113.9", 5, 900) {
		t.Error("limiter must fail open when redis is unreachable")
	}
}

func TestAllow_NilLimiter(t *testing.T) {
	var rl *RateLimiter
	if !rl.Allow(context.Background(), "subscribe", "x", 5, 900) {
		t.Error("nil limiter must allow everything")
	}
}
