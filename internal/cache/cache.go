// Package cache puts a Redis read-through cache in front of the pipeline and
// application stores and records idempotency keys for stage changes. A nil
// Redis client turns every operation into a passthrough.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/johnwards/talentflow/internal/store"
)

// Connect parses a redis:// URL and checks the server answers a PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Wrap returns a copy of s whose pipeline and application stores read
// through Redis. Job storage is not cached.
func Wrap(s *store.Store, client *redis.Client, ttl time.Duration) *store.Store {
	return &store.Store{
		DB:           s.DB,
		Jobs:         s.Jobs,
		Pipelines:    NewPipelineCache(s.Pipelines, client, ttl),
		Applications: NewApplicationCache(s.Applications, client, ttl),
	}
}

func pipelineKey(jobID string) string {
	return "pipeline:" + jobID
}

func applicationsKey(jobID string) string {
	return "applications:" + jobID
}

// load decodes the cached value at key into dst. A corrupt or unreadable
// entry is dropped so the next read goes to the store.
func load(ctx context.Context, client *redis.Client, key string, dst any) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("cache read failed")
			_ = client.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = client.Del(ctx, key).Err()
		return false
	}
	return true
}

func save(ctx context.Context, client *redis.Client, key string, v any, ttl time.Duration) {
	if client == nil || ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func evict(ctx context.Context, client *redis.Client, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.WithError(err).WithField("keys", keys).Warn("cache evict failed")
	}
}

// Purge deletes every pipeline and application entry. Idempotency keys are
// left to expire.
func Purge(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	for _, pattern := range []string{"pipeline:*", "applications:*"} {
		iter := client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
