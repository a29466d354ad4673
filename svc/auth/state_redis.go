package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore keeps state tokens in Redis so any replica can validate
// a callback. Tokens expire via TTL; GETDEL gives one-time consumption.
type RedisStateStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStateStore(client *redis.Client, keyPrefix string) *RedisStateStore {
	if keyPrefix == "" {
		keyPrefix = "oauth_state:"
	}
	return &RedisStateStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStateStore) Store(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Set(ctx, s.keyPrefix+state, "1", ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	err := s.client.GetDel(ctx, s.keyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	return err
}
