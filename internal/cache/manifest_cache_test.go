package cache

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdash/internal/logger"
)

func TestManifestCache_PutAndGet(t *testing.T) {
	mc, err := New(logger.Nop(), 4)
	require.NoError(t, err)

	_, found := mc.Get("https://example.com/videoplayback?itag=140")
	assert.False(t, found)

	mc.Put("https://example.com/videoplayback?itag=140", "<MPD/>")

	got, found := mc.Get("https://example.com/videoplayback?itag=140")
	require.True(t, found)
	assert.Equal(t, "<MPD/>", got)
	assert.True(t, mc.ContainsKey("https://example.com/videoplayback?itag=140"))

	stats := mc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Puts)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 4, stats.Capacity)
}

func TestManifestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc, err := New(logger.Nop(), 2)
	require.NoError(t, err)

	mc.Put("a", "1")
	mc.Put("b", "2")
	// Touch a so b becomes the eviction candidate.
	_, _ = mc.Get("a")
	mc.Put("c", "3")

	assert.True(t, mc.ContainsKey("a"))
	assert.False(t, mc.ContainsKey("b"))
	assert.True(t, mc.ContainsKey("c"))
	assert.Equal(t, 2, mc.Len())
	assert.Equal(t, int64(1), mc.Stats().Evictions)
}

func TestManifestCache_ContainsKeyDoesNotPromote(t *testing.T) {
	mc, err := New(logger.Nop(), 2)
	require.NoError(t, err)

	mc.Put("a", "1")
	mc.Put("b", "2")
	require.True(t, mc.ContainsKey("a"))
	mc.Put("c", "3")

	assert.False(t, mc.ContainsKey("a"))
}

func TestManifestCache_PutReplaces(t *testing.T) {
	mc, err := New(logger.Nop(), 2)
	require.NoError(t, err)

	mc.Put("a", "old")
	mc.Put("a", "new")

	got, ok := mc.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, mc.Len())
}

func TestManifestCache_Resize(t *testing.T) {
	mc, err := New(logger.Nop(), 3)
	require.NoError(t, err)
	mc.Put("a", "1")
	mc.Put("b", "2")
	mc.Put("c", "3")

	evicted, err := mc.Resize(1)
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)
	assert.True(t, mc.ContainsKey("c"))
	assert.Equal(t, 1, mc.Stats().Capacity)

	_, err = mc.Resize(0)
	assert.Error(t, err)
}

func TestManifestCache_Purge(t *testing.T) {
	mc, err := New(logger.Nop(), 3)
	require.NoError(t, err)
	mc.Put("a", "1")
	mc.Purge()
	assert.Equal(t, 0, mc.Len())
}

func TestManifestCache_InvalidCapacity(t *testing.T) {
	_, err := New(logger.Nop(), 0)
	assert.Error(t, err)
	_, err = New(nil, -1)
	assert.Error(t, err)
}

func TestManifestCache_Concurrency(t *testing.T) {
	mc, err := New(nil, 50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := strconv.Itoa((i*100 + j) % 75)
				mc.Put(key, key)
				if v, ok := mc.Get(key); ok {
					assert.Equal(t, key, v)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, mc.Len(), 50)
}
