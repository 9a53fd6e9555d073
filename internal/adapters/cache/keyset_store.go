package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keysetKey = "auth:idp:keyset"

// RedisKeysetStore caches the identity provider's raw keyset document under a
// single key shared by every instance, so one fetch serves the whole fleet
// until the TTL lapses or a forced refresh drops it.
type RedisKeysetStore struct {
	client *redis.Client
}

func NewRedisKeysetStore(client *redis.Client) *RedisKeysetStore {
	return &RedisKeysetStore{client: client}
}

func (s *RedisKeysetStore) Get(ctx context.Context) ([]byte, error) {
	raw, err := s.client.Get(ctx, keysetKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *RedisKeysetStore) Put(ctx context.Context, raw []byte, ttl time.Duration) error {
	return s.client.Set(ctx, keysetKey, raw, ttl).Err()
}

func (s *RedisKeysetStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, keysetKey).Err()
}
