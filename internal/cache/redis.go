package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// cachedEvaluation is the Redis envelope for an evaluation
type cachedEvaluation struct {
	Data      *domain.Evaluation `json:"data"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// RedisCache is the shared cache tier. Every call goes through a circuit breaker so
// a Redis outage degrades to memory-only caching instead of slowing every request.
type RedisCache struct {
	redis      *redis.Client
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCache(client, config, logger), nil
}

func newRedisCache(client *redis.Client, config domain.CacheConfig, logger *logrus.Logger) *RedisCache {
	window := config.BreakerWindow
	if window <= 0 {
		window = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-evaluation-cache",
		MaxRequests: 3,
		Interval:    window,
		Timeout:     2 * window,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &RedisCache{
		redis:      client,
		breaker:    breaker,
		defaultTTL: config.DefaultTTL,
		logger:     logger,
	}
}

// Get retrieves a cached evaluation. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Evaluation, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		val, err := c.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return val, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get evaluation cache: %w", err)
	}

	val, _ := result.(string)
	if val == "" {
		return nil, false, nil
	}

	var cached cachedEvaluation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches an evaluation. A zero ttl uses the configured default.
func (c *RedisCache) Set(ctx context.Context, key string, eval *domain.Evaluation, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	payload, err := json.Marshal(cachedEvaluation{
		Data:      eval,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation cache data: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Set(ctx, key, payload, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set evaluation cache: %w", err)
	}
	return nil
}

// Ping checks Redis reachability for health reporting.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// BreakerState reports the circuit breaker state.
func (c *RedisCache) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
