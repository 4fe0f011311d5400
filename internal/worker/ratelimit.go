// Package worker holds shared request-path infrastructure. The rate limiter
// guards the public newsletter form and the admin endpoints; nothing in this
// package belongs to the synchronization core.
package worker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rtlmb/member-sync/internal/pkg/logger"
)

// Lua script for an atomic fixed-window check. INCR and EXPIRE must happen
// in one step, otherwise a crash between them leaves a counter that never
// expires and permanently blocks the key.
const fixedWindowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
    redis.call("EXPIRE", key, window)
end

if current > limit then
    return {0, current}
end
return {1, current}
`

// RateLimiter provides atomic fixed-window rate limiting on Redis.
// The Lua script makes the window check a single atomic operation, so
// concurrent requests cannot race past the limit.
type RateLimiter struct {
	redis        *redis.Client
	windowScript *redis.Script
}

// NewRateLimiter creates a rate limiter backed by the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:        client,
		windowScript: redis.NewScript(fixedWindowLuaScript),
	}
}

// Allow consumes one request from the window identified by prefix and key
// (typically the client IP). limit is the number of requests permitted per
// windowSeconds.
//
// On Redis errors the limiter fails open and the request is allowed.
func (rl *RateLimiter) Allow(ctx context.Context, prefix, key string, limit, windowSeconds int) bool {
	if rl == nil || rl.redis == nil {
		return true
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%s", prefix, key)
	result, err := rl.windowScript.Run(ctx, rl.redis,
		[]string{redisKey}, limit, windowSeconds).Result()
	if err != nil {
		logger.Warn("rate limiter unavailable, failing open",
			"prefix", prefix, "error", err.Error())
		return true
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 1 {
		return true
	}
	allowed, _ := values[0].(int64)
	return allowed == 1
}
