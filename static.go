package observe

// MakeStaticObserver wraps a fixed value in a degenerate node with no
// compute path and no subscriptions. It never recomputes and its
// snapshot version never changes.
func MakeStaticObserver[T any](v T, opts ...Option) Observer[T] {
	cfg := applyOptions(opts)
	n := cfg.mgr.newNode(cfg.name, nil)
	n.snap.Store(&snapshotData{value: v, version: cfg.mgr.clock.Add(1)})
	return Observer[T]{core: n}
}
