// Package idempotency stores request idempotency keys so that replayed
// mutations (retried publishes, duplicate deletes) apply at most once.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds idempotency keys in Redis with a TTL. A key is claimed by the
// first request that presents it; replays within the TTL see the claim and
// skip the side effect.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewStoreWithClient(client, ttl), nil
}

// NewStoreWithClient wraps an existing Redis client.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		client: client,
		prefix: "idem:",
		ttl:    ttl,
	}
}

func (s *Store) key(requestKey string) string {
	return s.prefix + requestKey
}

// Claim attempts to claim the key. Returns true when this caller is the
// first to present it; false when the key was already claimed (a replay).
func (s *Store) Claim(ctx context.Context, requestKey string) (bool, error) {
	claimed, err := s.client.SetNX(ctx, s.key(requestKey), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return claimed, nil
}

// Release drops a claim so the operation may be retried, used when the
// claimed operation failed before taking effect.
func (s *Store) Release(ctx context.Context, requestKey string) error {
	if err := s.client.Del(ctx, s.key(requestKey)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
