package observe

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

// Manager owns the recomputation machinery: a fixed pool of workers
// draining one FIFO queue, the global version counter, and the
// quiescence barrier. Everything asynchronous (recomputes, callback
// firings, external re-fetches) runs on its workers; application
// goroutines only ever execute synchronous reads, observable writes and
// the first build of a new derived observer.
type Manager struct {
	mu       sync.Mutex
	workCond *sync.Cond
	idleCond *sync.Cond
	queue    []func()
	pending  int
	closed   bool

	clock  atomic.Uint64
	nextID atomic.Uint64

	workers int
	wg      sync.WaitGroup
	hooks   []Hook

	registry typedMap[uint64, weak.Pointer[node]]
}

// ManagerOption configures a manager at construction time.
type ManagerOption func(*Manager)

// WithWorkers sets the worker pool size. Zero or negative means
// GOMAXPROCS.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		m.workers = n
	}
}

// WithHook registers a hook receiving scheduler events. Hooks are fixed
// for the manager's lifetime and invoked inline on worker goroutines,
// so they must be fast and must not block.
func WithHook(h Hook) ManagerOption {
	return func(m *Manager) {
		m.hooks = append(m.hooks, h)
	}
}

// New creates a manager with its own worker pool. Most callers want
// Default; injecting a private manager keeps tests hermetic.
func New(opts ...ManagerOption) *Manager {
	m := &Manager{}
	m.workCond = sync.NewCond(&m.mu)
	m.idleCond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	if m.workers <= 0 {
		m.workers = runtime.GOMAXPROCS(0)
		if m.workers <= 0 {
			m.workers = 1
		}
	}
	for _, h := range m.hooks {
		h.Init(m)
	}
	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.worker()
	}
	return m
}

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// Default returns the process-wide manager, initialized on first use and
// never torn down.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultMgr = New()
	})
	return defaultMgr
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.workCond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
		fn = nil

		m.mu.Lock()
		m.pending--
		if m.pending == 0 {
			m.idleCond.Broadcast()
		}
		m.mu.Unlock()
	}
}

// enqueue submits work to the pool. The queue is unbounded: tasks
// routinely enqueue follow-up tasks, and a bounded channel would
// deadlock once every worker blocks on a full queue. After Close,
// submissions are dropped and enqueue reports false, so callers that
// count in-flight work can release what the dropped task would have.
func (m *Manager) enqueue(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, fn)
	m.pending++
	m.workCond.Signal()
	m.mu.Unlock()
	return true
}

// schedule queues a refresh of the node for the given round,
// deduplicating against an already-queued refresh at the same or a later
// round.
func (m *Manager) schedule(n *node, round uint64) {
	n.mu.Lock()
	if n.scheduled >= round {
		n.mu.Unlock()
		return
	}
	n.scheduled = round
	n.mu.Unlock()
	m.enqueue(func() {
		n.refresh(round)
	})
}

// WaitForAllUpdates blocks until the work queue, including everything
// enqueued as a side effect of draining it, is empty. Calling it from
// inside a callback or compute closure deadlocks, as the calling task
// itself never finishes.
func (m *Manager) WaitForAllUpdates() {
	m.mu.Lock()
	for m.pending > 0 {
		m.idleCond.Wait()
	}
	m.mu.Unlock()
}

// Close drains the queue and stops the workers. Work submitted after
// Close is dropped; operations already queued complete normally.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.workCond.Broadcast()
	m.mu.Unlock()
	m.wg.Wait()
	m.mu.Lock()
	m.pending = 0
	m.idleCond.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) newNode(name string, compute func(*ComputeCtx) (any, error)) *node {
	n := &node{
		id:      m.nextID.Add(1),
		mgr:     m,
		name:    name,
		compute: compute,
	}
	m.registry.Store(n.id, weak.Make(n))
	return n
}

func (m *Manager) emitRecompute(ev RecomputeEvent) {
	for _, h := range m.hooks {
		h.OnRecompute(ev)
	}
}

func (m *Manager) emitCommit(ev CommitEvent) {
	for _, h := range m.hooks {
		h.OnCommit(ev)
	}
}

func (m *Manager) emitCallback(ev CallbackEvent) {
	for _, h := range m.hooks {
		h.OnCallback(ev)
	}
}

// GraphNode is one adjacency entry of the exported dependency graph.
type GraphNode struct {
	Info       NodeInfo
	Downstream []NodeInfo
	Root       bool
}

// Graph exports the live dependency graph, pruning nodes that have been
// collected. Intended for debug and visualization hooks, not for
// synchronization: the snapshot is only consistent per node.
func (m *Manager) Graph() []GraphNode {
	var out []GraphNode
	m.registry.Range(func(id uint64, wp weak.Pointer[node]) bool {
		n := wp.Value()
		if n == nil {
			m.registry.Delete(id)
			return true
		}
		n.mu.Lock()
		entry := GraphNode{Info: n.info(), Root: len(n.upstream) == 0}
		for _, dw := range n.downstream {
			if d := dw.Value(); d != nil {
				entry.Downstream = append(entry.Downstream, d.info())
			}
		}
		n.mu.Unlock()
		out = append(out, entry)
		return true
	})
	return out
}
