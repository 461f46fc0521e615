package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Lua script for atomic token bucket operations. State is a Redis hash of
// tokens and last_refill (milliseconds); refill happens lazily per call.
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local requested = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

local elapsed = now - last_refill
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
end

local reset_ms = 0
if tokens < capacity then
    reset_ms = math.ceil((capacity - tokens) / rate * 1000)
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('PEXPIRE', key, reset_ms + 60000)

return {allowed, math.floor(tokens), reset_ms}
`

// Config holds rate limiter parameters.
type Config struct {
	// RequestsPerMinute is the sustained limit per identifier.
	RequestsPerMinute int
	// Burst is the bucket capacity above the sustained rate.
	Burst int
	// KeyPrefix namespaces the Redis keys.
	KeyPrefix string
}

// RedisRateLimiter enforces limits across instances via Redis, falling back
// to per-process token buckets when Redis is unreachable.
type RedisRateLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	local  *BucketPool
	logger logger.Logger

	mu     sync.RWMutex
	config Config
}

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter creates a rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, cfg Config, log logger.Logger) *RedisRateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}
	capacity := float64(cfg.RequestsPerMinute + cfg.Burst)
	rate := float64(cfg.RequestsPerMinute) / 60.0
	return &RedisRateLimiter{
		client: client,
		script: redis.NewScript(tokenBucketLuaScript),
		config: cfg,
		local:  NewBucketPool(capacity, rate),
		logger: log.WithComponent("RateLimiter"),
	}
}

// SetLimits applies new sustained and burst limits at runtime. Used by the
// config watcher.
func (rl *RedisRateLimiter) SetLimits(requestsPerMinute, burst int) {
	if requestsPerMinute <= 0 || burst <= 0 {
		return
	}
	rl.mu.Lock()
	rl.config.RequestsPerMinute = requestsPerMinute
	rl.config.Burst = burst
	rl.mu.Unlock()
}

// Allow consumes one request from the identifier's budget.
func (rl *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int64, time.Duration, error) {
	key := rl.buildKey(scope, identifier)
	rl.mu.RLock()
	capacity := int64(rl.config.RequestsPerMinute + rl.config.Burst)
	rate := float64(rl.config.RequestsPerMinute) / 60.0
	rl.mu.RUnlock()

	res, err := rl.script.Run(ctx, rl.client, []string{key},
		capacity, rate, 1, time.Now().UnixMilli()).Result()
	if err != nil {
		// Redis down: fail open through the local bucket so a cache outage
		// does not take the whole gateway with it.
		rl.logger.Warn(ctx, "redis rate limit unavailable, using local fallback", logger.Error(err))
		return rl.local.Allow(key), 0, 0, nil
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return false, 0, 0, errors.ErrInternal.WithMessage("unexpected rate limit script result")
	}
	allowed := vals[0].(int64) == 1
	remaining := vals[1].(int64)
	resetMs := vals[2].(int64)

	var retryAfter time.Duration
	if !allowed {
		retryAfter = time.Duration(resetMs) * time.Millisecond
	}
	return allowed, remaining, retryAfter, nil
}

// Reset clears the counter for an identifier.
func (rl *RedisRateLimiter) Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error {
	if err := rl.client.Del(ctx, rl.buildKey(scope, identifier)).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}

func (rl *RedisRateLimiter) buildKey(scope constants.RateLimitScope, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", rl.config.KeyPrefix, scope, identifier)
}

// NoopLimiter admits every request. Installed when rate limiting is switched
// off in configuration.
type NoopLimiter struct{}

var _ service.RateLimitService = (*NoopLimiter)(nil)

// NewNoopLimiter creates a limiter that never denies.
func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

// Allow always admits the request.
func (n *NoopLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, identifier string) (bool, int64, time.Duration, error) {
	return true, 0, 0, nil
}

// Reset is a no-op.
func (n *NoopLimiter) Reset(ctx context.Context, scope constants.RateLimitScope, identifier string) error {
	return nil
}
