package revocation

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "gogomedia:revoked_tokens"

// RedisStore keeps revoked tokens in a single Redis set. The set is never
// expired, so the deployment must run Redis with persistence enabled.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		Key:    DefaultRedisKey,
	}
}

func (s *RedisStore) key() string {
	if s.Key == "" {
		return DefaultRedisKey
	}
	return s.Key
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.Client.SAdd(ctx, s.key(), token).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := s.Client.SIsMember(ctx, s.key(), token).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
