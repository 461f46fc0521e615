package redis

import (
	"context"
	"time"

	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type sessionBlacklist struct {
	redis *RedisConnection
	log   logger.Logger
}

// NewSessionBlacklist creates the Redis-backed revoked-session store. Entries
// carry the remaining token lifetime as their TTL so the set self-prunes.
func NewSessionBlacklist(conn *RedisConnection, log logger.Logger) service.SessionBlacklist {
	return &sessionBlacklist{redis: conn, log: log.WithComponent("SessionBlacklist")}
}

func (b *sessionBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to remember.
		return nil
	}
	key := constants.CacheKeySessionBlacklist + jti
	if err := b.redis.Client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	b.log.Info(ctx, "session revoked", logger.String("jti", jti))
	return nil
}

func (b *sessionBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key := constants.CacheKeySessionBlacklist + jti
	n, err := b.redis.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.ErrInternal.WithError(err)
	}
	return n > 0, nil
}
