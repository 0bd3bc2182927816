package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"ytdash/internal/logger"
)

// DefaultCapacity is the number of manifests kept when no capacity is configured.
const DefaultCapacity = 1000

// Stats holds cache performance counters.
type Stats struct {
	Hits      int64 // Successful Get operations
	Misses    int64 // Failed Get operations
	Puts      int64 // Put operations
	Evictions int64 // Entries dropped by the capacity policy
	Size      int   // Current number of entries
	Capacity  int
}

// ManifestCache provides a thread-safe, bounded, in-memory cache of generated manifests keyed
// by the original streaming URL. When full, the least recently used entry is evicted.
// Entries never expire otherwise.
type ManifestCache struct {
	lru      *lru.Cache[string, string]
	logger   logger.Logger
	capacity atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	puts      atomic.Int64
	evictions atomic.Int64
}

// New creates a ManifestCache holding at most capacity entries.
func New(log logger.Logger, capacity int) (*ManifestCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if log == nil {
		log = logger.Nop()
	}

	mc := &ManifestCache{logger: log}
	l, err := lru.NewWithEvict[string, string](capacity, func(key string, _ string) {
		mc.evictions.Add(1)
		mc.logger.Debugf("Evicted manifest: %s", key)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	mc.lru = l
	mc.capacity.Store(int64(capacity))
	return mc, nil
}

// Get retrieves a manifest and marks it as recently used.
func (mc *ManifestCache) Get(key string) (string, bool) {
	v, ok := mc.lru.Get(key)
	if !ok {
		mc.misses.Add(1)
		return "", false
	}
	mc.hits.Add(1)
	return v, true
}

// Put stores a manifest, evicting the least recently used entry when over capacity.
func (mc *ManifestCache) Put(key, value string) {
	mc.lru.Add(key, value)
	mc.puts.Add(1)
	mc.logger.Debugf("Cached manifest: %s, size: %d bytes", key, len(value))
}

// ContainsKey reports whether key is cached without touching its recency.
func (mc *ManifestCache) ContainsKey(key string) bool {
	return mc.lru.Contains(key)
}

// Len returns the number of cached manifests.
func (mc *ManifestCache) Len() int {
	return mc.lru.Len()
}

// Resize changes the capacity, evicting least recently used entries if needed.
// It returns the number of evicted entries.
func (mc *ManifestCache) Resize(capacity int) (int, error) {
	if capacity <= 0 {
		return 0, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	mc.capacity.Store(int64(capacity))
	return mc.lru.Resize(capacity), nil
}

// Purge removes every entry.
func (mc *ManifestCache) Purge() {
	mc.lru.Purge()
}

// Stats returns a snapshot of the cache counters.
func (mc *ManifestCache) Stats() Stats {
	return Stats{
		Hits:      mc.hits.Load(),
		Misses:    mc.misses.Load(),
		Puts:      mc.puts.Load(),
		Evictions: mc.evictions.Load(),
		Size:      mc.lru.Len(),
		Capacity:  int(mc.capacity.Load()),
	}
}
