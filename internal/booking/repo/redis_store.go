package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/u4s-chat/server/internal/booking/model"
	errx "github.com/u4s-chat/server/internal/core/error"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// RedisStateStore persists booking contexts in Redis as JSON values with a
// per-session TTL. The TTL is refreshed on every write so an active dialogue
// never expires mid-negotiation.
type RedisStateStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStateStore(rdb redis.Cmdable, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStateStore) contextKey(sessionID string) string {
	return fmt.Sprintf("booking:%s:context", sessionID)
}

func (s *RedisStateStore) Get(ctx context.Context, sessionID string) (*model.BookingContext, error) {
	key := s.contextKey(sessionID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load booking context from redis")
		return nil, errx.WrapRedis(err)
	}

	var bc model.BookingContext
	if err := json.Unmarshal([]byte(raw), &bc); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to unmarshal booking context")
		return nil, fmt.Errorf("unmarshal booking context: %w", err)
	}
	return &bc, nil
}

func (s *RedisStateStore) Set(ctx context.Context, sessionID string, bc *model.BookingContext) error {
	b, err := json.Marshal(bc)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to marshal booking context")
		return fmt.Errorf("marshal booking context: %w", err)
	}
	key := s.contextKey(sessionID)

	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write booking context to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStateStore) Clear(ctx context.Context, sessionID string) error {
	key := s.contextKey(sessionID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete booking context from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.StateStore = (*RedisStateStore)(nil)
