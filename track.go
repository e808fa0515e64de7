package observe

// ComputeCtx is passed to compute closures. Observer reads made through
// it are recorded as upstream edges of the node being computed, which is
// how the graph discovers its edges: the upstream set after a recompute
// is exactly the set of observers read during it, so conditional reads
// rewire the graph on the fly.
type ComputeCtx struct {
	node  *node
	mgr   *Manager
	round uint64

	// worker is true when the compute runs on a manager worker as part
	// of a propagation wave, false during the synchronous first build.
	worker bool

	reads map[*node]uint64
}

// Manager returns the manager driving this computation.
func (ctx *ComputeCtx) Manager() *Manager {
	return ctx.mgr
}

// readNode records the dependency edge and returns the dependency's
// snapshot.
//
// During a worker round, the dependency is refreshed inline first so
// that a node never recomputes from upstream state older than the wave
// that scheduled it; the wave mark makes the refresh a cheap no-op when
// the dependency is already up to date. If the dependency is itself
// computing right now, a cycle or a sibling worker racing us, the read
// falls back to its last committed snapshot. The fallback is stale for
// at most one wave: the holder's recheck reconverges it.
func (ctx *ComputeCtx) readNode(dep *node) *snapshotData {
	if ctx.worker && !dep.computing.Load() {
		dep.refresh(ctx.round)
	}
	sd := dep.snap.Load()
	ctx.reads[dep] = sd.version
	return sd
}
