package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// unreachableRedis points at a closed port with retries disabled.
func unreachableRedis(t *testing.T) *RedisCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	return newRedisCache(client, domain.CacheConfig{DefaultTTL: time.Minute, BreakerWindow: time.Minute}, quietLogger())
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)

	c, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", &domain.Evaluation{Status: domain.StatusControlled}, 0))
	require.NoError(t, c.Set(ctx, "b", &domain.Evaluation{Status: domain.StatusNoRuleMatched}, 0))
	require.NoError(t, c.Set(ctx, "c", &domain.Evaluation{Status: domain.StatusActionsRecommended}, 0))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok, "least recently used entry is evicted")

	got, ok, _ := c.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, domain.StatusActionsRecommended, got.Status)

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c, err := NewMemoryCache(4, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "k", &domain.Evaluation{}, 0))
	time.Sleep(60 * time.Millisecond)

	_, ok, _ := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestKeyDependsOnFingerprintAndLocale(t *testing.T) {
	in := domain.PatientInput{Age: 60, WeightKg: 80, HeightCm: 170, HbA1c: 8, HbA1cTarget: 7, EGFR: 60}
	a := domain.MustPatientProfile(in, domain.Metformin, domain.Insulin)
	b := domain.MustPatientProfile(in, domain.Insulin, domain.Metformin)

	assert.Equal(t, Key(a, domain.LocaleEnglish), Key(b, domain.LocaleEnglish))
	assert.NotEqual(t, Key(a, domain.LocaleEnglish), Key(a, domain.LocaleRomanian))
	assert.Contains(t, Key(a, domain.LocaleRomanian), "avis:eval:ro:")
}

func TestNewRedisCacheErrors(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not a url"}, quietLogger())
	assert.Error(t, err)

	_, err = NewRedisCache(domain.CacheConfig{RedisURL: "redis://127.0.0.1:1/0", MaxRetries: -1}, quietLogger())
	assert.Error(t, err)
}

func TestRedisCacheBreakerOpens(t *testing.T) {
	c := unreachableRedis(t)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := c.Get(ctx, "k")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestTieredCacheDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(8, time.Minute)
	require.NoError(t, err)

	tiered := NewTieredCache(memory, unreachableRedis(t), quietLogger())
	defer tiered.Close()

	_, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	eval := &domain.Evaluation{Status: domain.StatusControlled}
	require.NoError(t, tiered.Set(ctx, "k", eval, time.Minute))

	got, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, eval, got)
}

func TestTieredCacheMemoryOnly(t *testing.T) {
	memory, err := NewMemoryCache(8, time.Minute)
	require.NoError(t, err)

	tiered := NewTieredCache(memory, nil, quietLogger())
	assert.Nil(t, tiered.Redis())

	_, ok, err := tiered.Get(context.Background(), "none")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, tiered.Close())
}
