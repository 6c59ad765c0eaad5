// Package cache provides evaluation result caching. Evaluations are pure functions
// of the clinical inputs, so results are keyed by the profile fingerprint.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// MemoryCache is an in-process LRU with a uniform TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.Evaluation]
	ttl time.Duration
}

// NewMemoryCache creates a memory cache holding at most maxItems entries.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.Evaluation](maxItems, nil, ttl),
		ttl: ttl,
	}, nil
}

// Get returns a cached evaluation. The ctx is accepted for interface symmetry.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.Evaluation, bool, error) {
	eval, ok := c.lru.Get(key)
	return eval, ok, nil
}

// Set stores an evaluation. Per-entry ttl is not supported; the cache-wide TTL applies.
func (c *MemoryCache) Set(_ context.Context, key string, eval *domain.Evaluation, _ time.Duration) error {
	c.lru.Add(key, eval)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}

// Close implements domain.EvaluationCache.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

// Key builds the cache key of a profile evaluated in a locale.
func Key(profile *domain.PatientProfile, locale domain.Locale) string {
	return fmt.Sprintf("avis:eval:%s:%s", locale, profile.Fingerprint())
}
