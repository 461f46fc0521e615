package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

func TestTokenBucket(t *testing.T) {
	t.Run("should drain and deny", func(t *testing.T) {
		// Rate so slow that no meaningful refill happens during the test.
		bucket := NewTokenBucket(3, 0.001)
		assert.True(t, bucket.Allow())
		assert.True(t, bucket.Allow())
		assert.True(t, bucket.Allow())
		assert.False(t, bucket.Allow())
	})

	t.Run("should guard against bad parameters", func(t *testing.T) {
		bucket := NewTokenBucket(0, 0)
		assert.True(t, bucket.Allow())
		assert.False(t, bucket.Allow())
	})
}

func TestBucketPool(t *testing.T) {
	pool := NewBucketPool(1, 0.001)

	assert.True(t, pool.Allow("a"))
	assert.False(t, pool.Allow("a"))
	// Separate identifiers get separate buckets.
	assert.True(t, pool.Allow("b"))
}

func TestBucketPoolCleanup(t *testing.T) {
	pool := NewBucketPool(1, 0.001)

	for _, id := range []string{"a", "b", "c"} {
		pool.Allow(id)
	}
	require.Equal(t, 3, pool.Size())

	t.Run("active buckets survive", func(t *testing.T) {
		assert.Equal(t, 0, pool.Cleanup(time.Minute))
		assert.Equal(t, 3, pool.Size())
	})

	t.Run("idle buckets are dropped", func(t *testing.T) {
		assert.Equal(t, 3, pool.Cleanup(0))
		assert.Equal(t, 0, pool.Size())
	})

	t.Run("evicted identifier starts with a fresh bucket", func(t *testing.T) {
		assert.True(t, pool.Allow("a"))
		assert.Equal(t, 1, pool.Size())
	})
}

func TestNoopLimiter(t *testing.T) {
	limiter := NewNoopLimiter()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		allowed, _, _, err := limiter.Allow(ctx, constants.RateLimitScopeIP, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	assert.NoError(t, limiter.Reset(ctx, constants.RateLimitScopeIP, "1.2.3.4"))
}

func TestRedisRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, Config{
		RequestsPerMinute: 60,
		Burst:             2,
	}, logger.NewNoopLogger())
	ctx := context.Background()

	t.Run("should allow until the bucket is empty", func(t *testing.T) {
		var denied bool
		for i := 0; i < 70; i++ {
			allowed, _, retryAfter, err := limiter.Allow(ctx, constants.RateLimitScopeIP, "1.2.3.4")
			require.NoError(t, err)
			if !allowed {
				denied = true
				assert.Greater(t, retryAfter.Milliseconds(), int64(0))
				break
			}
		}
		assert.True(t, denied, "bucket of 62 should not admit 70 requests")
	})

	t.Run("reset should refill the bucket", func(t *testing.T) {
		require.NoError(t, limiter.Reset(ctx, constants.RateLimitScopeIP, "1.2.3.4"))
		allowed, _, _, err := limiter.Allow(ctx, constants.RateLimitScopeIP, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("identifiers are isolated", func(t *testing.T) {
		allowed, _, _, err := limiter.Allow(ctx, constants.RateLimitScopeIP, "5.6.7.8")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("should fail open through the local bucket when redis is down", func(t *testing.T) {
		mr.Close()
		allowed, _, _, err := limiter.Allow(ctx, constants.RateLimitScopeIP, "9.9.9.9")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
