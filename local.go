package observe

import (
	"sync"
)

// LocalObserver trades a small per-slot memory footprint for repeated
// reads that skip the snapshot type assertion and allocation entirely
// when the value has not moved. Slots live in a sync.Pool, so caching is
// effectively per-P; a slot is refreshed lazily, on the first read after
// a commit, by comparing its version against the node's.
type LocalObserver[T any] struct {
	source Observer[T]
	pool   sync.Pool
}

type localSlot[T any] struct {
	loaded  bool
	version uint64
	value   T
}

// NewLocalObserver builds a per-P cached reader over source.
func NewLocalObserver[T any](source Observer[T]) *LocalObserver[T] {
	l := &LocalObserver[T]{source: source}
	l.pool.New = func() any {
		return &localSlot[T]{}
	}
	return l
}

// Get returns the latest committed value, refreshing the slot if the
// node has committed since the slot last read it. Staleness is bounded
// by a single version comparison: a committed update is visible to the
// very next Get.
func (l *LocalObserver[T]) Get() T {
	slot := l.pool.Get().(*localSlot[T])
	if cur := l.source.core.version(); !slot.loaded || slot.version != cur {
		s := l.source.GetSnapshot()
		slot.value = s.Get()
		slot.version = s.Version()
		slot.loaded = true
	}
	v := slot.value
	l.pool.Put(slot)
	return v
}

// Observer returns the underlying source handle.
func (l *LocalObserver[T]) Observer() Observer[T] {
	return l.source
}
