package observe

import (
	"sync"
)

// typedMap is a typed wrapper over sync.Map. The manager uses one as its
// node registry, keyed by the stable node id rather than the node's
// address.
type typedMap[K comparable, V any] struct {
	data sync.Map
}

func (c *typedMap[K, V]) Load(key K) (V, bool) {
	value, ok := c.data.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return value.(V), true
}

func (c *typedMap[K, V]) Store(key K, value V) {
	c.data.Store(key, value)
}

func (c *typedMap[K, V]) Delete(key K) {
	c.data.Delete(key)
}

func (c *typedMap[K, V]) Range(fn func(key K, value V) bool) {
	c.data.Range(func(key, value any) bool {
		return fn(key.(K), value.(V))
	})
}

func (c *typedMap[K, V]) Size() int {
	count := 0
	c.data.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
