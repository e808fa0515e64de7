package observe

import (
	"sync"
	"sync/atomic"
	"time"
)

// Source is the contract for an external push-capable value provider.
// Get must not produce an absent value. Subscribe registers a single
// notifier that the source invokes, on its own goroutine, whenever Get
// should be re-run. Unsubscribe is called exactly once, at Close.
type Source[T any] interface {
	Get() (T, error)
	Subscribe(notify func()) error
	Unsubscribe()
}

// SourceObserver bridges a Source into a root-like node. The first
// fetch happens synchronously at construction; after that, each notify
// schedules an asynchronous re-fetch-and-commit on the manager pool.
// Fetch failures after construction are contained exactly like derived
// recompute failures.
type SourceObserver[T any] struct {
	core *node
	src  Source[T]

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	commitMu     sync.Mutex
	fetchSeq     atomic.Uint64
	committedSeq uint64
}

// NewSourceObserver builds the bridge. A failing or nil first fetch, or
// a failing Subscribe, fails construction; on Subscribe failure the
// source is left unsubscribed.
func NewSourceObserver[T any](src Source[T], opts ...Option) (*SourceObserver[T], error) {
	cfg := applyOptions(opts)
	n := cfg.mgr.newNode(cfg.name, nil)
	n.equals = cfg.equals

	v, err := src.Get()
	if err != nil {
		return nil, newComputeError(n.info(), err)
	}
	if isNilValue(v) {
		return nil, newComputeError(n.info(), ErrNilValue)
	}
	n.snap.Store(&snapshotData{value: v, version: cfg.mgr.clock.Add(1)})

	so := &SourceObserver[T]{core: n, src: src}
	if err := src.Subscribe(so.notify); err != nil {
		return nil, newComputeError(n.info(), err)
	}
	// The subscription must not outlive the node, and vice versa.
	n.pin(so)
	return so, nil
}

// Observer returns a read handle to the bridged value.
func (s *SourceObserver[T]) Observer() Observer[T] {
	return Observer[T]{core: s.core}
}

// notify is handed to the source as its re-fetch trigger. It is safe to
// call from any goroutine and returns without blocking on the fetch.
func (s *SourceObserver[T]) notify() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	accepted := s.core.mgr.enqueue(func() {
		defer s.inflight.Done()
		start := time.Now()
		seq := s.fetchSeq.Add(1)
		v, err := s.src.Get()
		if err == nil && isNilValue(v) {
			err = ErrNilValue
		}
		if err != nil {
			err = newComputeError(s.core.info(), err)
		}
		s.core.mgr.emitRecompute(RecomputeEvent{Node: s.core.info(), Duration: time.Since(start), Err: err})
		if err != nil {
			return
		}
		s.commit(seq, v)
	})
	if !accepted {
		// The manager shut down between the Add and the submit; balance
		// the counter so Close does not wait on a task that never runs.
		s.inflight.Done()
	}
}

// commit publishes a fetched value through the node. Fetches may race
// through the pool out of order; the sequence taken just before Get
// keeps an older result from overwriting a newer one.
func (s *SourceObserver[T]) commit(seq uint64, v T) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if seq <= s.committedSeq {
		return
	}
	s.committedSeq = seq
	s.core.commit(v, 0)
}

// Close unsubscribes from the source and joins any re-fetch already in
// flight, so the source's resources can be released safely afterwards.
// Safe to call once; further calls are no-ops.
func (s *SourceObserver[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.src.Unsubscribe()
	s.inflight.Wait()
}
