package observe

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// node is a vertex of the dependency graph. Roots (observables, static
// values, external sources) have a nil compute closure; derived nodes
// recompute through it.
//
// Edge ownership is asymmetric: upstream holds strong references (a
// dependency must outlive its live dependents), downstream holds weak
// back-references used only for update propagation. Dead weak entries are
// pruned lazily whenever dependents are collected.
type node struct {
	id   uint64
	mgr  *Manager
	name string

	snap      atomic.Pointer[snapshotData]
	computing atomic.Bool

	// processed is the wave high-water mark: the highest round this node
	// has been brought up to date for. A derived node scheduled at or
	// below it has nothing to do.
	processed atomic.Uint64

	compute func(*ComputeCtx) (any, error)

	// equals, when set, suppresses commits whose value the previous
	// committed value is considered equal to.
	equals func(prev, next any) bool

	mu sync.Mutex
	// upstream maps each dependency to the version of it read by the
	// last successful recompute.
	upstream    map[*node]uint64
	downstream  map[uint64]weak.Pointer[node]
	subscribers []*subscriber
	pending     *any
	scheduled   uint64

	// pins keeps auxiliary state (wrapper subscriptions, delay state)
	// reachable for as long as the node itself is.
	pins []any
}

func (n *node) version() uint64 {
	if sd := n.snap.Load(); sd != nil {
		return sd.version
	}
	return 0
}

func (n *node) info() NodeInfo {
	name := n.name
	if name == "" {
		name = fmt.Sprintf("node-%d", n.id)
	}
	return NodeInfo{ID: n.id, Name: name}
}

// refresh brings the node up to date for the propagation wave
// identified by round (the commit version of whatever triggered the
// scheduling). A derived node already processed at or past that round
// returns immediately, which is both the same-wave dedup and the
// write-coalescing mechanism. Roots always run: their guard is the
// pending slot, not the wave mark.
func (n *node) refresh(round uint64) {
	if n.compute != nil && n.processed.Load() >= round {
		return
	}
	if !n.computing.CompareAndSwap(false, true) {
		// Already being recomputed, either by another worker or further
		// up this goroutine's own read chain (a cycle). Derived nodes
		// are covered by the holder's recheck; a root may race a
		// publish against the holder's pending read, so try again.
		if n.compute == nil {
			n.mgr.schedule(n, n.mgr.clock.Add(1))
		}
		return
	}
	var reads map[*node]uint64
	if n.compute == nil {
		n.refreshRoot()
	} else {
		n.processed.Store(round)
		reads = n.currentUpstream()
		if n.upstreamChanged(reads, round) {
			reads = n.runRefresh(round)
		}
	}
	n.computing.Store(false)
	n.recheck(reads)
}

// refreshRoot consumes the pending slot and publishes it. Runs with the
// computing marker held.
func (n *node) refreshRoot() {
	n.mu.Lock()
	p := n.pending
	n.pending = nil
	n.mu.Unlock()
	if p != nil {
		n.commit(*p, 0)
	}
}

// upstreamChanged reports whether any recorded dependency has committed
// past the version the last recompute read from it. Each dependency is
// first refreshed for the current wave, depth first, so a node never
// recomputes from upstream state older than the wave that scheduled it.
// A dependency that is itself mid-compute is left alone; recheck covers
// it afterwards.
func (n *node) upstreamChanged(deps map[*node]uint64, round uint64) bool {
	changed := false
	for dep, ver := range deps {
		if !dep.computing.Load() {
			dep.refresh(round)
		}
		if dep.version() > ver {
			changed = true
		}
	}
	return changed
}

// runRefresh does the actual recompute with the computing marker held.
// It returns the dependency versions read, for post-compute validation.
func (n *node) runRefresh(round uint64) map[*node]uint64 {
	ctx := &ComputeCtx{node: n, mgr: n.mgr, round: round, worker: true, reads: make(map[*node]uint64)}
	start := time.Now()
	v, err := runCompute(n.compute, ctx)
	n.mgr.emitRecompute(RecomputeEvent{Node: n.info(), Round: round, Duration: time.Since(start), Err: err})
	if err != nil {
		// Contained: keep the previous value, version and edge set, and
		// do not mark dependents. The stale recorded versions make the
		// next wave that reaches this node retry the compute.
		return ctx.reads
	}
	n.swapUpstream(ctx.reads)
	n.commit(v, round)
	return ctx.reads
}

// recheck closes the refresh races that the non-blocking computing
// marker leaves open: a dependency we read (or skipped because it was
// mid-compute) may have committed after our pass over it. Rescheduling
// at a fresh clock round bypasses the wave mark, so the node reconverges
// even when the missed commit belonged to the wave just processed. Runs
// after the computing marker is released so the rescheduled refresh is
// not mistaken for a cycle.
func (n *node) recheck(reads map[*node]uint64) {
	for dep, ver := range reads {
		if dep.computing.Load() || dep.version() > ver {
			n.mgr.schedule(n, n.mgr.clock.Add(1))
			break
		}
	}
	if n.compute == nil {
		n.mu.Lock()
		hasPending := n.pending != nil
		n.mu.Unlock()
		if hasPending {
			n.mgr.schedule(n, n.mgr.clock.Add(1))
		}
	}
}

// commit publishes a new value and propagates the wave downstream. A
// derived node commits at its wave round; roots pass zero and get a
// fresh clock version, starting a new wave. Values that are
// reference-identical to the previous commit (same pointer, map,
// channel or function) are dropped without a version bump, as are
// values rejected by the node's equals suppressor.
func (n *node) commit(v any, version uint64) {
	old := n.snap.Load()
	if old != nil {
		if sameIdentity(old.value, v) {
			return
		}
		if n.equals != nil && n.equals(old.value, v) {
			return
		}
	}
	if version == 0 {
		version = n.mgr.clock.Add(1)
	}
	sd := &snapshotData{value: v, version: version}
	n.snap.Store(sd)
	n.mgr.emitCommit(CommitEvent{Node: n.info(), Version: version})

	for _, d := range n.collectDownstream() {
		n.mgr.schedule(d, version)
	}
	n.notifySubscribers(sd)
}

// currentUpstream copies the recorded dependency set.
func (n *node) currentUpstream() map[*node]uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[*node]uint64, len(n.upstream))
	for dep, ver := range n.upstream {
		out[dep] = ver
	}
	return out
}

// swapUpstream replaces the recorded dependency set with the read set of
// the recompute that just finished and fixes up both edge directions.
// Conditional reads make the live edge set change between
// recomputations.
func (n *node) swapUpstream(reads map[*node]uint64) {
	n.mu.Lock()
	old := n.upstream
	n.upstream = reads
	n.mu.Unlock()

	for dep := range old {
		if _, ok := reads[dep]; !ok {
			dep.removeDownstream(n.id)
		}
	}
	for dep := range reads {
		if _, ok := old[dep]; !ok {
			dep.addDownstream(n)
		}
	}
}

func (n *node) addDownstream(dep *node) {
	n.mu.Lock()
	if n.downstream == nil {
		n.downstream = make(map[uint64]weak.Pointer[node])
	}
	n.downstream[dep.id] = weak.Make(dep)
	n.mu.Unlock()
}

func (n *node) removeDownstream(id uint64) {
	n.mu.Lock()
	delete(n.downstream, id)
	n.mu.Unlock()
}

func (n *node) collectDownstream() []*node {
	n.mu.Lock()
	defer n.mu.Unlock()
	deps := make([]*node, 0, len(n.downstream))
	for id, wp := range n.downstream {
		if d := wp.Value(); d != nil {
			deps = append(deps, d)
		} else {
			delete(n.downstream, id)
		}
	}
	return deps
}

func (n *node) addSubscriber(s *subscriber) {
	n.mu.Lock()
	n.subscribers = append(n.subscribers, s)
	n.mu.Unlock()
}

func (n *node) removeSubscriber(s *subscriber) {
	n.mu.Lock()
	for i, cur := range n.subscribers {
		if cur == s {
			n.subscribers = append(n.subscribers[:i], n.subscribers[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
}

func (n *node) notifySubscribers(sd *snapshotData) {
	n.mu.Lock()
	subs := make([]*subscriber, len(n.subscribers))
	copy(subs, n.subscribers)
	n.mu.Unlock()
	for _, s := range subs {
		s.push(sd)
	}
}

func (n *node) pin(vals ...any) {
	n.mu.Lock()
	n.pins = append(n.pins, vals...)
	n.mu.Unlock()
}

// sameIdentity reports whether prev and next are the same referent for
// reference kinds. Value kinds always compare as distinct here; value
// deduplication is the value-observer wrapper's job.
func sameIdentity(prev, next any) bool {
	if prev == nil || next == nil {
		return false
	}
	pv := reflect.ValueOf(prev)
	nv := reflect.ValueOf(next)
	if pv.Type() != nv.Type() {
		return false
	}
	switch pv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return pv.Pointer() == nv.Pointer()
	}
	return false
}

// isNilValue reports whether v is absent: a nil interface or a typed nil
// of a nilable kind. Committing such a value is a contract violation.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// runCompute runs a compute closure, converting panics and nil results
// into errors so a misbehaving closure can never take down a worker.
func runCompute(compute func(*ComputeCtx) (any, error), ctx *ComputeCtx) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newComputeError(ctx.node.info(), fmt.Errorf("panic: %v", r))
		}
	}()
	v, err = compute(ctx)
	if err == nil && isNilValue(v) {
		err = newComputeError(ctx.node.info(), ErrNilValue)
	} else if err != nil {
		err = newComputeError(ctx.node.info(), err)
	}
	return v, err
}
