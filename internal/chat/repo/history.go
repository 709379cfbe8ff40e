package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/u4s-chat/server/internal/chat"
	errx "github.com/u4s-chat/server/internal/core/error"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// RedisHistoryRepo keeps the per-session turn history in a Redis list with a
// TTL extended on every touch.
type RedisHistoryRepo struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisHistoryRepo(rdb redis.Cmdable, ttl time.Duration) *RedisHistoryRepo {
	return &RedisHistoryRepo{rdb: rdb, ttl: ttl}
}

func (r *RedisHistoryRepo) historyKey(sessionID string) string {
	return fmt.Sprintf("chat:%s:history", sessionID)
}

func (r *RedisHistoryRepo) Append(ctx context.Context, sessionID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to marshal history message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.historyKey(sessionID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push history message to redis")
		return errx.WrapRedis(err)
	}
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire on history key")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to refresh TTL on history key")
		}
	}
	return nil
}

func (r *RedisHistoryRepo) Load(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	key := r.historyKey(sessionID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*schema.Message{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load chat history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("sessionID", sessionID).Int("index", i).Msg("failed to unmarshal history message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisHistoryRepo) Clear(ctx context.Context, sessionID string) error {
	key := r.historyKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete chat history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ chat.HistoryRepo = (*RedisHistoryRepo)(nil)
