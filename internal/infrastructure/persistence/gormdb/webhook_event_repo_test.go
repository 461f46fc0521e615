package gormdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

func newTestConn(t *testing.T) *DBConnection {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	conn, err := NewWithGorm(db, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func journaled(id string, status string, receivedAt time.Time) *models.WebhookEvent {
	return &models.WebhookEvent{
		EventID:       id,
		Provider:      "razorpay",
		EventType:     "payment.captured",
		Payload:       []byte(`{"event_id":"` + id + `"}`),
		ForwardStatus: status,
		ReceivedAt:    receivedAt,
	}
}

func TestWebhookEventRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())

		require.NoError(t, repo.Save(ctx, journaled("evt_1", models.WebhookForwardPending, time.Now())))

		got, err := repo.FindByEventID(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, "razorpay", got.Provider)
		assert.Equal(t, models.WebhookForwardPending, got.ForwardStatus)
		assert.JSONEq(t, `{"event_id":"evt_1"}`, string(got.Payload))
	})

	t.Run("duplicate event id is a conflict", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())

		require.NoError(t, repo.Save(ctx, journaled("evt_1", models.WebhookForwardPending, time.Now())))
		err := repo.Save(ctx, journaled("evt_1", models.WebhookForwardPending, time.Now()))
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("unknown event id is not found", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())

		_, err := repo.FindByEventID(ctx, "missing")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("mark forwarded stamps status and time", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())
		require.NoError(t, repo.Save(ctx, journaled("evt_1", models.WebhookForwardPending, time.Now())))

		require.NoError(t, repo.MarkForwarded(ctx, "evt_1", models.WebhookForwardDone))

		got, err := repo.FindByEventID(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, models.WebhookForwardDone, got.ForwardStatus)
		assert.NotNil(t, got.ForwardedAt)
	})

	t.Run("mark forwarded of unknown event is not found", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())
		err := repo.MarkForwarded(ctx, "missing", models.WebhookForwardDone)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("list pending returns oldest first", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())
		base := time.Now().Add(-time.Hour)

		require.NoError(t, repo.Save(ctx, journaled("evt_new", models.WebhookForwardFailed, base.Add(30*time.Minute))))
		require.NoError(t, repo.Save(ctx, journaled("evt_old", models.WebhookForwardPending, base)))
		require.NoError(t, repo.Save(ctx, journaled("evt_done", models.WebhookForwardDone, base.Add(10*time.Minute))))

		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "evt_old", pending[0].EventID)
		assert.Equal(t, "evt_new", pending[1].EventID)
	})

	t.Run("list pending honors the limit", func(t *testing.T) {
		repo := NewWebhookEventRepository(newTestConn(t), logger.NewNoopLogger())
		base := time.Now()

		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, repo.Save(ctx, journaled("evt_"+id, models.WebhookForwardPending, base)))
			base = base.Add(time.Minute)
		}

		pending, err := repo.ListPending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})
}

func TestAuditRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(newTestConn(t), logger.NewNoopLogger())

	base := time.Now().Add(-time.Hour)
	for i, typ := range []string{models.EventLogin, models.EventAssessmentStarted, models.EventAssessmentCompleted} {
		require.NoError(t, repo.Save(ctx, &models.PlatformEvent{
			EventID:   typ + "-id",
			Type:      typ,
			UserID:    "user-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &models.PlatformEvent{
		EventID: "other", Type: models.EventLogin, UserID: "user-2", CreatedAt: base,
	}))

	events, err := repo.ListByUser(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventAssessmentCompleted, events[0].Type)
	assert.Equal(t, models.EventAssessmentStarted, events[1].Type)
}
