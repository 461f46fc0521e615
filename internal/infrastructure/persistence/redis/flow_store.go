package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"

	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

type flowStore struct {
	redis *RedisConnection
	log   logger.Logger
}

// NewFlowStore creates the Redis-backed assessment flow store. Records expire
// after FlowStateTTL so abandoned flows clean themselves up.
func NewFlowStore(conn *RedisConnection, log logger.Logger) service.FlowStore {
	return &flowStore{redis: conn, log: log.WithComponent("FlowStore")}
}

func (s *flowStore) Get(ctx context.Context, sessionID string) (*models.AssessmentFlow, error) {
	key := constants.CacheKeyFlow + sessionID
	val, err := s.redis.Client.Get(ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, errors.ErrNotFound.WithMessage("assessment session not found: %s", sessionID)
		}
		return nil, errors.ErrInternal.WithError(err)
	}
	var flow models.AssessmentFlow
	if err := json.Unmarshal([]byte(val), &flow); err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}
	return &flow, nil
}

func (s *flowStore) Put(ctx context.Context, flow *models.AssessmentFlow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return errors.ErrInternal.WithError(err)
	}
	key := constants.CacheKeyFlow + flow.SessionID
	if err := s.redis.Client.Set(ctx, key, data, constants.FlowStateTTL).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}

func (s *flowStore) Delete(ctx context.Context, sessionID string) error {
	key := constants.CacheKeyFlow + sessionID
	if err := s.redis.Client.Del(ctx, key).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}

// TryStart claims the per-user start guard. The guard holds the session id so
// a second start can return the live session instead of creating another.
func (s *flowStore) TryStart(ctx context.Context, userID, sessionID string) (bool, string, error) {
	key := constants.CacheKeyFlowStart + userID
	ok, err := s.redis.Client.SetNX(ctx, key, sessionID, constants.FlowStateTTL).Result()
	if err != nil {
		return false, "", errors.ErrInternal.WithError(err)
	}
	if ok {
		return true, sessionID, nil
	}
	existing, err := s.redis.Client.Get(ctx, key).Result()
	if err != nil && err != goredis.Nil {
		return false, "", errors.ErrInternal.WithError(err)
	}
	return false, existing, nil
}

func (s *flowStore) ReleaseStart(ctx context.Context, userID string) error {
	key := constants.CacheKeyFlowStart + userID
	if err := s.redis.Client.Del(ctx, key).Err(); err != nil {
		return errors.ErrInternal.WithError(err)
	}
	return nil
}
