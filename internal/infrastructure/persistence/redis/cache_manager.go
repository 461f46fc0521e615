package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type cacheManagerImpl struct {
	redis *RedisConnection
	log   logger.Logger
}

// NewCacheManager creates the Redis-backed L2 cache.
func NewCacheManager(conn *RedisConnection, log logger.Logger) service.CacheManager {
	return &cacheManagerImpl{redis: conn, log: log.WithComponent("CacheManager")}
}

func (c *cacheManagerImpl) Get(ctx context.Context, key string) (string, error) {
	val, err := c.redis.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", errors.ErrNotFound.WithDetail("key", key)
		}
		return "", errors.ErrInternal.WithError(err)
	}
	return val, nil
}

func (c *cacheManagerImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := marshalValue(value)
	if err != nil {
		return errors.ErrInternal.WithError(err)
	}
	if err := c.redis.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}

func (c *cacheManagerImpl) Delete(ctx context.Context, key string) error {
	if err := c.redis.Client.Del(ctx, key).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}

func (c *cacheManagerImpl) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := marshalValue(value)
	if err != nil {
		return false, errors.ErrInternal.WithError(err)
	}
	ok, err := c.redis.Client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return false, errors.ErrInternal.WithError(err)
	}
	return ok, nil
}

func marshalValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string, []byte, int, int32, int64, float32, float64, bool:
		return v, nil
	default:
		return json.Marshal(value)
	}
}
