package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/store"
)

// ApplicationCache caches the application list of each job. Single
// application reads and history always go to the store.
type ApplicationCache struct {
	base  store.ApplicationStore
	redis *redis.Client
	ttl   time.Duration
}

var _ store.ApplicationStore = (*ApplicationCache)(nil)

// NewApplicationCache wraps base.
func NewApplicationCache(base store.ApplicationStore, client *redis.Client, ttl time.Duration) *ApplicationCache {
	if base == nil {
		panic("cache.NewApplicationCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &ApplicationCache{base: base, redis: client, ttl: ttl}
}

func (c *ApplicationCache) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	created, err := c.base.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, applicationsKey(created.JobID))
	return created, nil
}

func (c *ApplicationCache) Get(ctx context.Context, id string) (*domain.Application, error) {
	return c.base.Get(ctx, id)
}

// ListByJob returns the cached list or loads and caches it.
func (c *ApplicationCache) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	var cached []domain.Application
	if load(ctx, c.redis, applicationsKey(jobID), &cached) {
		return cached, nil
	}

	apps, err := c.base.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	save(ctx, c.redis, applicationsKey(jobID), apps, c.ttl)
	return apps, nil
}

func (c *ApplicationCache) ChangeStage(ctx context.Context, id string, m store.StageMove) (*domain.Application, error) {
	a, err := c.base.ChangeStage(ctx, id, m)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, applicationsKey(a.JobID))
	return a, nil
}

// BulkUpdateStatus updates through and evicts the list of every job touched.
func (c *ApplicationCache) BulkUpdateStatus(ctx context.Context, ids []string, status domain.ApplicationStatus) (int, error) {
	n, err := c.base.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, err
	}
	if c.redis == nil {
		return n, nil
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, id := range ids {
		a, err := c.base.Get(ctx, id)
		if err != nil {
			continue
		}
		if _, ok := seen[a.JobID]; ok {
			continue
		}
		seen[a.JobID] = struct{}{}
		keys = append(keys, applicationsKey(a.JobID))
	}
	evict(ctx, c.redis, keys...)
	return n, nil
}

func (c *ApplicationCache) History(ctx context.Context, id string) ([]domain.StageChange, error) {
	return c.base.History(ctx, id)
}
