// Package cache provides a bounded least-recently-used index, used by
// the mempool to track which transaction hashes have been seen recently
// without ever pruning the authoritative evidence set itself.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a bounded recency index over comparable keys. Eviction
// here never implies deletion from any authoritative set it shadows —
// callers that need "have I ever seen this" semantics keep their own
// unbounded set and use LRUCache only to answer "was this recent".
type LRUCache[K comparable] struct {
	inner *lru.Cache[K, struct{}]
}

// NewLRUCache constructs an LRU index holding up to capacity keys.
func NewLRUCache[K comparable](capacity int) *LRUCache[K] {
	inner, err := lru.New[K, struct{}](capacity)
	if err != nil {
		// Only returned by golang-lru for a non-positive capacity, which
		// is a caller programming error, not a runtime condition.
		panic(err)
	}
	return &LRUCache[K]{inner: inner}
}

// Add records key as recently seen, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *LRUCache[K]) Add(key K) {
	c.inner.Add(key, struct{}{})
}

// Contains reports whether key is currently held in the recency window.
func (c *LRUCache[K]) Contains(key K) bool {
	return c.inner.Contains(key)
}

// Len returns the number of keys currently held.
func (c *LRUCache[K]) Len() int {
	return c.inner.Len()
}
