package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vatfiler/internal/registration/models"
	id "vatfiler/pkg/domain"
	"vatfiler/pkg/platform/sentinel"
)

const (
	// Redis key prefix for flow states.
	flowKeyPrefix = "flow:"

	maxUpdateAttempts = 5
)

// RedisStore keeps flows in Redis as JSON with a sliding TTL, so several
// server instances can serve the same browser. Updates are optimistic
// transactions, so two instances cannot overwrite each other's changes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed flow store. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(flowID id.FlowID) string {
	return flowKeyPrefix + flowID.String()
}

func (s *RedisStore) Create(ctx context.Context, flowID id.FlowID, st models.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(flowID), b, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create flow: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, flowID id.FlowID) (models.State, error) {
	return decode(s.client.Get(ctx, key(flowID)).Bytes())
}

// Update reads the flow under WATCH and writes apply's result in a MULTI
// block with SET XX, sliding the TTL. If another writer touched the key in
// between, EXEC is discarded and the update starts again from a fresh read,
// up to maxUpdateAttempts times.
func (s *RedisStore) Update(ctx context.Context, flowID id.FlowID, apply func(models.State) (models.State, error)) error {
	k := key(flowID)
	update := func(tx *redis.Tx) error {
		current, err := decode(tx.Get(ctx, k).Bytes())
		if err != nil {
			return err
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode flow: %w", err)
		}
		var set *redis.BoolCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			set = pipe.SetXX(ctx, k, b, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		if !set.Val() {
			return sentinel.ErrNotFound
		}
		return nil
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, update, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update flow: %w: too many concurrent writers", sentinel.ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, flowID id.FlowID) error {
	n, err := s.client.Del(ctx, key(flowID)).Result()
	if err != nil {
		return fmt.Errorf("delete flow: %w: %w", sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func decode(b []byte, err error) (models.State, error) {
	if errors.Is(err, redis.Nil) {
		return models.State{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.State{}, fmt.Errorf("find flow: %w: %w", sentinel.ErrUnavailable, err)
	}
	var st models.State
	if err := json.Unmarshal(b, &st); err != nil {
		return models.State{}, fmt.Errorf("decode flow: %w", err)
	}
	if err := st.Validate(); err != nil {
		return models.State{}, fmt.Errorf("stored flow is corrupt: %w", err)
	}
	return st, nil
}
