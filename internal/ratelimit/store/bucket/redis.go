package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vatfiler/internal/ratelimit/models"
)

const keyPrefix = "ratelimit:"

// RedisStore counts requests per key in fixed windows so that every replica
// sees the same budget. The first request of a window sets its expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	k := keyPrefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, limit.Window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count request: %w", err)
	}

	count := int(incr.Val())
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = limit.Window
	}
	resetAt := time.Now().Add(remaining)

	if count <= limit.Requests {
		return &models.Result{
			Allowed:   true,
			Limit:     limit.Requests,
			Remaining: limit.Requests - count,
			ResetAt:   resetAt,
		}, nil
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit.Requests,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(remaining),
	}, nil
}
