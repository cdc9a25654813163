package embeddings

import (
	"container/list"
	"context"
	"crypto/sha256"
	"sync"
)

// Cache is a fixed-capacity map from exact text to embedding. When full,
// the oldest inserted entry is evicted; reads do not refresh an entry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = oldest; values are [32]byte keys
	entries  map[[32]byte]cacheEntry
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	vec  []float32
	elem *list.Element
}

// NewCache returns a cache holding at most capacity embeddings. A capacity
// of zero or less disables caching.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[[32]byte]cacheEntry),
	}
}

func cacheKey(text string) [32]byte {
	return sha256.Sum256([]byte(text))
}

// Get returns the cached embedding for text.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(text)]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.vec, true
}

// Put stores an embedding, evicting the oldest entries beyond capacity.
// Re-putting an existing key keeps its original insertion position.
func (c *Cache) Put(text string, vec []float32) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	if e, ok := c.entries[key]; ok {
		e.vec = vec
		c.entries[key] = e
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		delete(c.entries, oldest.Value.([32]byte))
		c.order.Remove(oldest)
	}
	c.entries[key] = cacheEntry{vec: vec, elem: c.order.PushBack(key)}
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CachedEmbedder serves repeated texts from a Cache and forwards only the
// misses to the wrapped Embedder.
type CachedEmbedder struct {
	Embedder
	cache *Cache
}

// NewCachedEmbedder wraps e with a cache of the given capacity.
func NewCachedEmbedder(e Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewCache(capacity)}
}

// Cache exposes the underlying cache for stats.
func (c *CachedEmbedder) Cache() *Cache {
	return c.cache
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.Embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Put(texts[i], vecs[j])
	}
	return out, nil
}
