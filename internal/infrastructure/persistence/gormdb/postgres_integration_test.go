//go:build integration

package gormdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// newPostgresConn starts a throwaway Postgres container and opens the journal
// against it. Requires a local Docker daemon; run with -tags integration.
func newPostgresConn(t *testing.T) *DBConnection {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, pool.Client.Ping())

	resource, err := pool.Run("postgres", "16-alpine", []string{
		"POSTGRES_USER=gateway",
		"POSTGRES_PASSWORD=gateway",
		"POSTGRES_DB=hnwi_gateway",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	_ = resource.Expire(180)

	dsn := fmt.Sprintf("host=localhost port=%s user=gateway password=gateway dbname=hnwi_gateway sslmode=disable",
		resource.GetPort("5432/tcp"))

	var conn *DBConnection
	require.NoError(t, pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		})
		if err != nil {
			return err
		}
		conn, err = NewWithGorm(db, logger.NewNoopLogger())
		return err
	}))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebhookJournalPostgres(t *testing.T) {
	ctx := context.Background()
	conn := newPostgresConn(t)
	repo := NewWebhookEventRepository(conn, logger.NewNoopLogger())

	event := &models.WebhookEvent{
		EventID:       "evt_pg_1",
		Provider:      "razorpay",
		EventType:     "payment.captured",
		Payload:       []byte(`{"event_id":"evt_pg_1"}`),
		ForwardStatus: models.WebhookForwardPending,
		ReceivedAt:    time.Now(),
	}
	require.NoError(t, repo.Save(ctx, event))

	t.Run("unique index holds under the real driver", func(t *testing.T) {
		dup := *event
		dup.ID = 0
		err := repo.Save(ctx, &dup)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("pending scan and forward stamp", func(t *testing.T) {
		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		require.NoError(t, repo.MarkForwarded(ctx, "evt_pg_1", models.WebhookForwardDone))
		pending, err = repo.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("connection ping", func(t *testing.T) {
		assert.NoError(t, conn.Ping(ctx))
	})
}
