package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/repository"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/crypto"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/events"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/gormdb"
	redisstore "github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

var testMetrics = monitoring.NewMetrics()

const testWebhookSecret = "whsec_test"

type staticSecrets struct{}

func (staticSecrets) SessionSecret(context.Context) ([]byte, error) {
	return []byte("0123456789abcdef0123456789abcdef"), nil
}

func (staticSecrets) WebhookSecret(context.Context) (string, error) {
	return testWebhookSecret, nil
}

type webhookEnv struct {
	svc     WebhookAppService
	repo    repository.WebhookEventRepository
	redis   *miniredis.Miniredis
	hits    *atomic.Int32
	failing *atomic.Bool
}

func newWebhookEnv(t *testing.T) *webhookEnv {
	t.Helper()
	log := logger.NewNoopLogger()

	mr := miniredis.RunT(t)
	conn := &redisstore.RedisConnection{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	dbConn, err := gormdb.NewWithGorm(db, log)
	require.NoError(t, err)

	env := &webhookEnv{
		repo:    gormdb.NewWebhookEventRepository(dbConn, log),
		redis:   mr,
		hits:    &atomic.Int32{},
		failing: &atomic.Bool{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.hits.Add(1)
		if env.failing.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)

	backend, err := upstream.NewClient(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5}, testMetrics, log)
	require.NoError(t, err)

	env.svc = NewWebhookAppService(
		backend,
		staticSecrets{},
		redisstore.NewCacheManager(conn, log),
		env.repo,
		events.NewNoopProducer(),
		testMetrics,
		log,
	)
	return env
}

func signedPayload(body string) (payload []byte, signature string) {
	payload = []byte(body)
	return payload, crypto.SignWebhookPayload(payload, testWebhookSecret)
}

func TestWebhookProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("verified event is journaled and forwarded", func(t *testing.T) {
		env := newWebhookEnv(t)
		payload, sig := signedPayload(`{"event_id":"evt_1","event":"payment.captured"}`)

		ack, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardDone, ack.Status)
		assert.Equal(t, "evt_1", ack.EventID)
		assert.Equal(t, int32(1), env.hits.Load())

		stored, err := env.repo.FindByEventID(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardDone, stored.ForwardStatus)
		assert.NotNil(t, stored.ForwardedAt)
		assert.Equal(t, payload, stored.Payload)
	})

	t.Run("bad signature is rejected before journaling", func(t *testing.T) {
		env := newWebhookEnv(t)
		payload, _ := signedPayload(`{"event_id":"evt_2","event":"payment.captured"}`)

		_, err := env.svc.Process(ctx, "razorpay", "deadbeef", payload)
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeSignatureInvalid, appErr.Code)
		assert.Zero(t, env.hits.Load())

		_, err = env.repo.FindByEventID(ctx, "evt_2")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("payload without event_id is rejected", func(t *testing.T) {
		env := newWebhookEnv(t)
		payload, sig := signedPayload(`{"event":"payment.captured"}`)

		_, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeInvalidRequest, appErr.Code)
	})

	t.Run("duplicate delivery is acknowledged without a second forward", func(t *testing.T) {
		env := newWebhookEnv(t)
		payload, sig := signedPayload(`{"event_id":"evt_3","event":"payment.captured"}`)

		_, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)

		ack, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardReplayed, ack.Status)
		assert.Equal(t, int32(1), env.hits.Load())
	})

	t.Run("journal catches replay when redis guard is lost", func(t *testing.T) {
		env := newWebhookEnv(t)
		payload, sig := signedPayload(`{"event_id":"evt_4","event":"payment.captured"}`)

		_, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)

		env.redis.FlushAll()

		ack, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardReplayed, ack.Status)
		assert.Equal(t, int32(1), env.hits.Load())
	})

	t.Run("forward failure is acknowledged and journaled as failed", func(t *testing.T) {
		env := newWebhookEnv(t)
		env.failing.Store(true)
		payload, sig := signedPayload(`{"event_id":"evt_5","event":"payment.captured"}`)

		ack, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardFailed, ack.Status)

		stored, err := env.repo.FindByEventID(ctx, "evt_5")
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardFailed, stored.ForwardStatus)
	})
}

func TestWebhookReplayPending(t *testing.T) {
	ctx := context.Background()
	env := newWebhookEnv(t)

	env.failing.Store(true)
	for _, body := range []string{
		`{"event_id":"evt_a","event":"payment.captured"}`,
		`{"event_id":"evt_b","event":"payment.failed"}`,
	} {
		payload, sig := signedPayload(body)
		_, err := env.svc.Process(ctx, "razorpay", sig, payload)
		require.NoError(t, err)
	}
	env.hits.Store(0)

	env.failing.Store(false)
	forwarded, err := env.svc.ReplayPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, forwarded)
	assert.Equal(t, int32(2), env.hits.Load())

	for _, id := range []string{"evt_a", "evt_b"} {
		stored, err := env.repo.FindByEventID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardDone, stored.ForwardStatus)
	}

	t.Run("nothing left to replay", func(t *testing.T) {
		forwarded, err := env.svc.ReplayPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, forwarded)
	})
}
