package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdash/internal/logger"
)

func setupMiniRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisStore(client, ttl, logger.Nop())
}

func TestRedisStore_PutGet(t *testing.T) {
	mr, store := setupMiniRedis(t, 0)

	store.Put("https://example.com/otf", "<MPD/>")

	got, found := store.Get("https://example.com/otf")
	require.True(t, found)
	assert.Equal(t, "<MPD/>", got)
	assert.True(t, store.ContainsKey("https://example.com/otf"))

	raw, err := mr.Get(KeyPrefix + "https://example.com/otf")
	require.NoError(t, err)
	assert.Equal(t, "<MPD/>", raw)
	assert.Zero(t, mr.TTL(KeyPrefix+"https://example.com/otf"))

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Puts)
}

func TestRedisStore_Missing(t *testing.T) {
	_, store := setupMiniRedis(t, 0)

	_, found := store.Get("nonexistent")
	assert.False(t, found)
	assert.False(t, store.ContainsKey("nonexistent"))
	assert.Equal(t, int64(1), store.Stats().Misses)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, store := setupMiniRedis(t, time.Minute)

	store.Put("k", "v")
	assert.Equal(t, time.Minute, mr.TTL(KeyPrefix+"k"))

	mr.FastForward(2 * time.Minute)
	_, found := store.Get("k")
	assert.False(t, found)
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, store := setupMiniRedis(t, 0)
	mr.Close()

	store.Put("k", "v")
	_, found := store.Get("k")
	assert.False(t, found)
	assert.False(t, store.ContainsKey("k"))
	assert.Equal(t, int64(0), store.Stats().Puts)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr}, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.HealthCheck(context.Background()))

	mr.Close()
	_, err = NewRedisStore(context.Background(), RedisConfig{Addr: addr}, nil)
	assert.Error(t, err)
}
