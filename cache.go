package vault

import "fmt"

// SimpleCache is a capacity-bounded, key-addressable cache: items are
// appended once and never removed except by Clear, and are addressable
// either by the string key they were registered under or by the dense
// index Register returned. component.go uses one instance to memoize
// ComponentInfo by type name so repeated NewComponent[T] calls for the
// same T don't redo the reflect-based layout computation.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// NewSimpleCache creates a cache that holds at most capacity items.
func NewSimpleCache[T any](capacity int) *SimpleCache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: capacity,
	}
}

// GetIndex returns the dense index registered under key, if any.
func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

// GetItem returns a pointer to the item at the given dense index.
func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

// Register appends item under key, returning its dense index. Returns
// an error once the cache is at maxCapacity.
func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if existing, ok := c.itemIndices[key]; ok {
		return existing, nil
	}
	if len(c.itemIndices) >= c.maxCapacity {
		return -1, fmt.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}

	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)

	return idx, nil
}

// Clear empties the cache, releasing all previously registered items.
func (c *SimpleCache[T]) Clear() {
	c.items = nil
	c.itemIndices = make(map[string]int)
}

// Len returns the number of registered items.
func (c *SimpleCache[T]) Len() int {
	return len(c.items)
}
