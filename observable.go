package observe

// Observable is a mutable root of the graph. Writes publish a new value
// and schedule propagation; they never block on recomputation of
// dependents.
type Observable[T any] struct {
	core *node
}

// NewObservable creates a root holding initial.
func NewObservable[T any](initial T, opts ...Option) *Observable[T] {
	cfg := applyOptions(opts)
	n := cfg.mgr.newNode(cfg.name, nil)
	n.equals = cfg.equals
	n.snap.Store(&snapshotData{value: initial, version: cfg.mgr.clock.Add(1)})
	return &Observable[T]{core: n}
}

// SetValue publishes a new value. Consecutive writes overwrite the
// pending slot before a worker picks it up, so rapid write bursts
// collapse into fewer visible intermediate states downstream; the final
// write always becomes visible.
func (o *Observable[T]) SetValue(v T) {
	boxed := any(v)
	o.core.mu.Lock()
	o.core.pending = &boxed
	o.core.mu.Unlock()
	o.core.mgr.schedule(o.core, o.core.mgr.clock.Add(1))
}

// Observer returns a read handle to this root.
func (o *Observable[T]) Observer() Observer[T] {
	return Observer[T]{core: o.core}
}
