package cache

// Store is the contract shared by every manifest cache level.
type Store interface {
	Get(key string) (string, bool)
	Put(key, value string)
	ContainsKey(key string) bool
}

// TieredCache checks the in-memory LRU first and falls back to a shared store, so
// replicas reuse each other's manifests while hot entries stay local.
type TieredCache struct {
	l1 *ManifestCache
	l2 Store
}

// NewTiered combines an L1 memory cache with an optional L2 store. A nil l2 leaves the
// cache memory-only.
func NewTiered(l1 *ManifestCache, l2 Store) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

// Get returns the manifest for key, promoting L2 hits into L1.
func (t *TieredCache) Get(key string) (string, bool) {
	if v, ok := t.l1.Get(key); ok {
		return v, true
	}
	if t.l2 == nil {
		return "", false
	}
	v, ok := t.l2.Get(key)
	if !ok {
		return "", false
	}
	t.l1.Put(key, v)
	return v, true
}

// Put writes through to both levels.
func (t *TieredCache) Put(key, value string) {
	t.l1.Put(key, value)
	if t.l2 != nil {
		t.l2.Put(key, value)
	}
}

// ContainsKey reports whether either level holds key.
func (t *TieredCache) ContainsKey(key string) bool {
	if t.l1.ContainsKey(key) {
		return true
	}
	return t.l2 != nil && t.l2.ContainsKey(key)
}
