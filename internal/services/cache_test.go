package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"negotiation-dashboard/backend-go/internal/config"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	_, ok := c.Get(ctx, "statistics:v1:missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "statistics:v1:b", []byte("B"), time.Minute))
	require.NoError(t, c.Set(ctx, "statistics:v1:a", []byte("A"), 0))
	require.NoError(t, c.Set(ctx, "other:x", []byte("X"), time.Minute))

	got, ok := c.Get(ctx, "statistics:v1:a")
	require.True(t, ok)
	assert.Equal(t, "A", string(got))

	keys, err := c.Keys(ctx, "statistics:v1:")
	require.NoError(t, err)
	assert.Equal(t, []string{"statistics:v1:a", "statistics:v1:b"}, keys)

	require.NoError(t, c.Delete(ctx, "statistics:v1:a", "statistics:v1:b"))
	require.NoError(t, c.Delete(ctx))
	keys, err = c.Keys(ctx, "statistics:v1:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok = c.Get(ctx, "other:x")
	assert.True(t, ok)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestRedisCache(t *testing.T) {
	c, _ := newTestRedisCache(t)
	exerciseCache(t, c)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	keys, err := c.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewCacheSelectsBackend(t *testing.T) {
	logger := zaptest.NewLogger(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewCache(config.Config{RedisURL: "redis://" + mr.Addr()}, logger)
	assert.Equal(t, "redis", CacheKind(c))

	c = NewCache(config.Config{RedisURL: "not a url"}, logger)
	assert.Equal(t, "memory", CacheKind(c))

	c = NewCache(config.Config{}, logger)
	assert.Equal(t, "memory", CacheKind(c))

	// nothing listens on port 1
	c = NewCache(config.Config{RedisURL: "redis://127.0.0.1:1"}, logger)
	assert.Equal(t, "memory", CacheKind(c))
}
