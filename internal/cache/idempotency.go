package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper stores idempotency keys in Redis so a retried stage change is
// applied at most once across instances. With a nil client every key is
// treated as new.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, scope, key string) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}
	return r.client.SetNX(ctx, r.key(scope, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key so the caller may retry after a
// failed change.
func (r *RedisDeduper) Remove(ctx context.Context, scope, key string) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Del(ctx, r.key(scope, key)).Err()
}
