package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/config"
	redisstore "github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

func newVaultEnv(t *testing.T, handler http.Handler) CrownVaultAppService {
	t.Helper()
	log := logger.NewNoopLogger()

	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend, err := upstream.NewClient(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5}, testMetrics, log)
	require.NoError(t, err)

	return NewCrownVaultAppService(backend, redisstore.NewCacheManager(conn, log), &config.CacheConfig{}, testMetrics, log)
}

func TestCrownVaultHeirs(t *testing.T) {
	ctx := context.Background()

	t.Run("list heirs proxies the asset's heir roster", func(t *testing.T) {
		var gotPath, gotMethod string
		svc := newVaultEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotMethod = r.URL.Path, r.Method
			w.Write([]byte(`[{"id":"h1","name":"Ada","relationship":"daughter","share_percent":60},
				{"id":"h2","name":"Leo","relationship":"son","share_percent":40}]`))
		}))

		heirs, err := svc.ListHeirs(ctx, "user-1", "asset-9")
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "/api/crown-vault/assets/asset-9/heirs", gotPath)
		require.Len(t, heirs, 2)
		assert.Equal(t, "Ada", heirs[0].Name)
		assert.Equal(t, 40.0, heirs[1].SharePercent)
	})

	t.Run("list heirs surfaces upstream not found", func(t *testing.T) {
		svc := newVaultEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such asset", http.StatusNotFound)
		}))

		_, err := svc.ListHeirs(ctx, "user-1", "missing")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("add heir posts and returns the new heir", func(t *testing.T) {
		svc := newVaultEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"id":"h3","name":"Mia","relationship":"niece","share_percent":10}`))
		}))

		heir, err := svc.AddHeir(ctx, "user-1", "asset-9", &dto.HeirRequest{
			Name: "Mia", Relationship: "niece", SharePercent: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, "h3", heir.ID)
	})
}

func TestCrownVaultAssetCacheTTL(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()

	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[{"id":"a1","name":"Villa Aurora"}]`))
	}))
	t.Cleanup(srv.Close)

	backend, err := upstream.NewClient(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5}, testMetrics, log)
	require.NoError(t, err)

	svc := NewCrownVaultAppService(backend, redisstore.NewCacheManager(conn, log),
		&config.CacheConfig{VaultAssetTTL: 120}, testMetrics, log)

	assets, err := svc.ListAssets(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)

	t.Run("second read is served from cache", func(t *testing.T) {
		_, err := svc.ListAssets(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("configured expiry is applied to the cache entry", func(t *testing.T) {
		assert.Equal(t, 120*time.Second, mr.TTL("vault:assets:user-1"))
	})
}
