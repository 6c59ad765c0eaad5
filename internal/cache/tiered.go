package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// TieredCache checks memory first and falls back to Redis. Redis failures are
// logged and treated as misses.
type TieredCache struct {
	memory *MemoryCache
	redis  *RedisCache
	logger *logrus.Logger
}

// NewTieredCache combines the tiers. redis may be nil for memory-only operation.
func NewTieredCache(memory *MemoryCache, redis *RedisCache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{memory: memory, redis: redis, logger: logger}
}

// Get implements domain.EvaluationCache.
func (t *TieredCache) Get(ctx context.Context, key string) (*domain.Evaluation, bool, error) {
	if eval, ok, _ := t.memory.Get(ctx, key); ok {
		return eval, true, nil
	}
	if t.redis == nil {
		return nil, false, nil
	}

	eval, ok, err := t.redis.Get(ctx, key)
	if err != nil {
		t.logger.WithError(err).Warn("Redis cache unavailable, continuing without shared cache")
		return nil, false, nil
	}
	if ok {
		t.memory.Set(ctx, key, eval, 0)
	}
	return eval, ok, nil
}

// Set implements domain.EvaluationCache.
func (t *TieredCache) Set(ctx context.Context, key string, eval *domain.Evaluation, ttl time.Duration) error {
	t.memory.Set(ctx, key, eval, ttl)
	if t.redis == nil {
		return nil
	}
	if err := t.redis.Set(ctx, key, eval, ttl); err != nil {
		t.logger.WithError(err).Warn("Failed to write shared cache")
	}
	return nil
}

// Redis returns the shared tier, or nil.
func (t *TieredCache) Redis() *RedisCache {
	return t.redis
}

// Close releases both tiers.
func (t *TieredCache) Close() error {
	t.memory.Close()
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}
