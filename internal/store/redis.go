package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// StateTTL bounds how long an abandoned session survives. Long enough to
// ride out any realistic reload, short enough that stale slots expire on
// their own.
const StateTTL = 24 * time.Hour

// RedisStore keeps session state in Redis, one JSON blob per slot.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, key string, state *model.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.rdb.Set(ctx, key, raw, StateTTL).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (*model.SessionState, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load state: %w", err)
	}

	var state model.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, ErrCorrupt
	}
	if !validState(&state) {
		return nil, ErrCorrupt
	}
	return &state, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
