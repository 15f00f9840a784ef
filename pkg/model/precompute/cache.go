// Package precompute caches the hidden layer contribution of frequent (id, slot) feature
// pairs, so that scoring adds a cached vector instead of multiplying W1 by an embedding.
package precompute

import (
	"runtime"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// Key identifies the dictionary id placed in a feature slot.
func Key(id, slot, numTokens int) int {
	return id*numTokens + slot
}

// Split is the inverse of Key.
func Split(key, numTokens int) (id, slot int) {
	return key / numTokens, key % numTokens
}

// Layout describes the row-major parameter slices a cache is computed from.
type Layout struct {
	NumTokens     int
	EmbeddingSize int
	HiddenSize    int
}

// Cache maps keys to the vector W1[:, slot] · E[id] of length HiddenSize.
// A built cache is never modified.
type Cache struct {
	hiddenSize int
	index      map[int]int
	keys       []int
	values     []float64
}

// Build computes the contribution of every valid key. e holds the embedding rows and w1
// the hidden weights (HiddenSize rows of NumTokens*EmbeddingSize columns).
func Build(layout Layout, keys []int, e, w1 []float64) *Cache {
	d, h := layout.EmbeddingSize, layout.HiddenSize
	numRows := len(e) / d

	c := &Cache{
		hiddenSize: h,
		index:      make(map[int]int, len(keys)),
		keys:       make([]int, 0, len(keys)),
	}
	for _, key := range keys {
		id, _ := Split(key, layout.NumTokens)
		if key < 0 || id >= numRows {
			continue
		}
		if _, ok := c.index[key]; ok {
			continue
		}
		c.index[key] = len(c.keys)
		c.keys = append(c.keys, key)
	}
	c.values = make([]float64, len(c.keys)*h)

	workers := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(c.keys); i += workers {
				id, slot := Split(c.keys[i], layout.NumTokens)
				Contribution(layout, c.values[i*h:(i+1)*h], w1, e[id*d:(id+1)*d], slot)
			}
		}(w)
	}
	wg.Wait()
	return c
}

// Contribution adds W1[:, slot] · x to dst.
func Contribution(layout Layout, dst, w1, x []float64, slot int) {
	d := layout.EmbeddingSize
	cols := layout.NumTokens * d
	offset := slot * d
	for j := range dst {
		row := j*cols + offset
		dst[j] += floats.Dot(w1[row:row+d], x)
	}
}

// Get returns the cached vector of key.
func (c *Cache) Get(key int) ([]float64, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.values[i*c.hiddenSize : (i+1)*c.hiddenSize], true
}

// Position returns the position of key among the cached keys.
func (c *Cache) Position(key int) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.index[key]
	return i, ok
}

// Keys returns the cached keys in position order.
func (c *Cache) Keys() []int {
	if c == nil {
		return nil
	}
	return c.keys
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Store publishes a cache to concurrent readers. Readers see either the previous or the
// new cache, never a partially built one.
type Store struct {
	v atomic.Value
}

type holder struct {
	cache *Cache
}

// Load returns the current cache, or nil.
func (s *Store) Load() *Cache {
	h, _ := s.v.Load().(holder)
	return h.cache
}

// Swap publishes c, which may be nil to drop the cache.
func (s *Store) Swap(c *Cache) {
	s.v.Store(holder{cache: c})
}
