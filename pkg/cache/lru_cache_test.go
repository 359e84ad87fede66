package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndContains(t *testing.T) {
	c := NewLRUCache[string](2)
	c.Add("a")
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := NewLRUCache[int](2)
	c.Add(1)
	c.Add(2)
	c.Add(3) // evicts 1

	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.Equal(t, 2, c.Len())
}

func TestNewLRUCachePanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() {
		NewLRUCache[string](0)
	})
}
