package observe

// snapshotData is the type-erased committed state of a node. It is
// immutable after creation and always swapped in whole behind an atomic
// pointer, so readers never need a lock once they hold one.
type snapshotData struct {
	value   any
	version uint64
}

// Snapshot is an immutable, versioned view of an observer's value at the
// moment it was read.
type Snapshot[T any] struct {
	value   T
	version uint64
}

// Get returns the value captured by the snapshot.
func (s Snapshot[T]) Get() T {
	return s.value
}

// Version returns the global version at which the value was committed.
// Versions observed on a single observer never go backward.
func (s Snapshot[T]) Version() uint64 {
	return s.version
}

func typedSnapshot[T any](sd *snapshotData) Snapshot[T] {
	return Snapshot[T]{value: sd.value.(T), version: sd.version}
}
