// Package redis provides Redis connection management and the gateway's
// cache, flow-store, and blacklist implementations.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// RedisConnection manages the Redis client lifecycle.
type RedisConnection struct {
	Client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection establishes a Redis connection and validates it with a
// ping. A single address yields a standalone client; multiple addresses a
// universal (cluster-capable) client.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info(ctx, "redis connection established",
		logger.Any("addresses", cfg.Addresses),
		logger.Int("pool_size", cfg.PoolSize),
	)

	return &RedisConnection{Client: client, logger: log}, nil
}

// Ping checks Redis server connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	return rc.Client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (rc *RedisConnection) Close() error {
	return rc.Client.Close()
}
