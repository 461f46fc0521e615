package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

func newTestConn(t *testing.T) (*RedisConnection, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	conn, err := NewRedisConnection(&config.RedisConfig{
		Addresses: []string{mr.Addr()},
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mr
}

func TestFlowStoreRoundTrip(t *testing.T) {
	conn, _ := newTestConn(t)
	store := NewFlowStore(conn, logger.NewNoopLogger())
	ctx := context.Background()

	flow := models.NewAssessmentFlow("sess-1", "user-1", 12, time.Now())
	require.NoError(t, store.Put(ctx, flow))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, constants.FlowStateLanding, got.State)
	assert.Equal(t, 12, got.TotalQuestions)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.True(t, errors.IsNotFound(err))
}

func TestFlowStoreStartGuard(t *testing.T) {
	conn, _ := newTestConn(t)
	store := NewFlowStore(conn, logger.NewNoopLogger())
	ctx := context.Background()

	claimed, sessionID, err := store.TryStart(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "sess-1", sessionID)

	claimed, existing, err := store.TryStart(ctx, "user-1", "sess-2")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "sess-1", existing)

	require.NoError(t, store.ReleaseStart(ctx, "user-1"))
	claimed, _, err = store.TryStart(ctx, "user-1", "sess-3")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestSessionBlacklist(t *testing.T) {
	conn, mr := newTestConn(t)
	blacklist := NewSessionBlacklist(conn, logger.NewNoopLogger())
	ctx := context.Background()

	revoked, err := blacklist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, blacklist.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = blacklist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// A revocation with no remaining lifetime is a no-op: the token is
	// already dead on its own.
	require.NoError(t, blacklist.Revoke(ctx, "jti-2", -time.Second))
	revoked, err = blacklist.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Entries expire with the token lifetime.
	mr.FastForward(2 * time.Minute)
	revoked, err = blacklist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCacheManager(t *testing.T) {
	conn, mr := newTestConn(t)
	cache := NewCacheManager(conn, logger.NewNoopLogger())
	ctx := context.Background()

	t.Run("string round trip with ttl", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k1", "v1", time.Minute))
		val, err := cache.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "v1", val)

		mr.FastForward(2 * time.Minute)
		_, err = cache.Get(ctx, "k1")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("structs are stored as json", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k2", models.InboxCounts{Total: 3, Unread: 1}, time.Minute))
		val, err := cache.Get(ctx, "k2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"total":3,"unread":1}`, val)
	})

	t.Run("setnx claims once", func(t *testing.T) {
		ok, err := cache.SetNX(ctx, "guard", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cache.SetNX(ctx, "guard", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, cache.Delete(ctx, "guard"))
		ok, err = cache.SetNX(ctx, "guard", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
