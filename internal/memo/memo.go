// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memo provides a small cache whose entries are invalidated by
// bumping a generation counter. Owners bump the generation on every
// mutation; lookups only hit when the stored generation is current.
package memo

import "sync"

// Generation is a monotonically increasing mutation counter.
type Generation struct {
	mu sync.Mutex
	n  uint64
}

// Bump advances the generation and returns the new value.
func (g *Generation) Bump() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

// Current returns the current generation.
func (g *Generation) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

type entry[V any] struct {
	value      V
	generation uint64
}

// Cache memoizes values per key against a Generation.
type Cache[K comparable, V any] struct {
	gen *Generation

	mu      sync.Mutex
	entries map[K]entry[V]
}

// New returns a cache bound to gen.
func New[K comparable, V any](gen *Generation) *Cache[K, V] {
	return &Cache[K, V]{gen: gen, entries: make(map[K]entry[V])}
}

// Get returns the value stored for key if it was stored at the current
// generation.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	current := c.gen.Current()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.generation != current {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for key at the current generation.
func (c *Cache[K, V]) Set(key K, value V) {
	c.setAt(key, value, c.gen.Current())
}

func (c *Cache[K, V]) setAt(key K, value V, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, generation: generation}
}

// GetOrCompute returns the cached value for key, computing and storing it
// when the cached copy is missing or stale. The value is stored under the
// generation observed before compute ran, so a concurrent mutation leaves
// it stale.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	generation := c.gen.Current()
	v := compute()
	c.setAt(key, v, generation)
	return v
}
