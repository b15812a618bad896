package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vatfiler/internal/accounts/models"
	"vatfiler/pkg/platform/sentinel"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions as JSON under "session:<token>". The key TTL is
// the session lifetime, so Redis does the expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+sess.Token, b, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, token string) (*models.Session, error) {
	b, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w: %w", sentinel.ErrUnavailable, err)
	}
	var sess models.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// Token is not serialised.
	sess.Token = token
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	n, err := s.client.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w: %w", sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
