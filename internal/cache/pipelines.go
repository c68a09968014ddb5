package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/store"
)

// PipelineCache caches pipelines by job ID.
type PipelineCache struct {
	base  store.PipelineStore
	redis *redis.Client
	ttl   time.Duration
}

var _ store.PipelineStore = (*PipelineCache)(nil)

// NewPipelineCache wraps base. A negative ttl is treated as zero, which
// disables writes to the cache.
func NewPipelineCache(base store.PipelineStore, client *redis.Client, ttl time.Duration) *PipelineCache {
	if base == nil {
		panic("cache.NewPipelineCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &PipelineCache{base: base, redis: client, ttl: ttl}
}

// GetByJob returns the cached pipeline or loads and caches it.
func (c *PipelineCache) GetByJob(ctx context.Context, jobID string) (*domain.Pipeline, error) {
	var cached domain.Pipeline
	if load(ctx, c.redis, pipelineKey(jobID), &cached) {
		return &cached, nil
	}

	p, err := c.base.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	save(ctx, c.redis, pipelineKey(jobID), p, c.ttl)
	return p, nil
}

// Save writes through and evicts the cached pipeline.
func (c *PipelineCache) Save(ctx context.Context, jobID string, p *domain.Pipeline) (*domain.Pipeline, error) {
	saved, err := c.base.Save(ctx, jobID, p)
	if err != nil {
		return nil, err
	}
	evict(ctx, c.redis, pipelineKey(jobID))
	return saved, nil
}

// DeleteByJob deletes through and evicts the cached pipeline.
func (c *PipelineCache) DeleteByJob(ctx context.Context, jobID string) error {
	if err := c.base.DeleteByJob(ctx, jobID); err != nil {
		return err
	}
	evict(ctx, c.redis, pipelineKey(jobID))
	return nil
}
