package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps a profile's keys in one Redis hash, <prefix>:<namespace>.
// It lets a kiosk fleet share sign-in state.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore returns a store on rdb for namespace.
func NewRedisStore(rdb *redis.Client, prefix, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, key: prefix + ":" + namespace}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.HSet(ctx, s.key, key, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.HDel(ctx, s.key, keys...).Err()
}

// Close is a no-op: the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
