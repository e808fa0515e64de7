package observe

import (
	"sync"
	"sync/atomic"
)

// AtomicObserver keeps the current value of a source observer behind a
// single lock-free slot instead of the snapshot machinery. Reads are one
// atomic pointer load; the slot is refreshed by a subscription on the
// source. The source can be swapped at runtime.
type AtomicObserver[T any] struct {
	val atomic.Pointer[T]

	mu     sync.Mutex
	handle *CallbackHandle
	closed bool
}

// NewAtomicObserver builds an atomic reader over source, seeded
// synchronously with its current value.
func NewAtomicObserver[T any](source Observer[T]) *AtomicObserver[T] {
	a := &AtomicObserver[T]{}
	a.attach(source)
	return a
}

// MakeAtomicObserver builds an atomic reader over a new derived
// observer computed by fn.
func MakeAtomicObserver[T any](compute func(ctx *ComputeCtx) (T, error), opts ...Option) (*AtomicObserver[T], error) {
	o, err := MakeObserver(compute, opts...)
	if err != nil {
		return nil, err
	}
	return NewAtomicObserver(o), nil
}

// Get returns the current value.
func (a *AtomicObserver[T]) Get() T {
	return *a.val.Load()
}

// Set rebinds the reader to a different source observer. The old
// subscription is cancelled and joined first, so no update from the
// previous source can land after Set returns.
func (a *AtomicObserver[T]) Set(source Observer[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle != nil {
		a.handle.Cancel()
		a.handle = nil
	}
	if a.closed {
		return
	}
	a.attachLocked(source)
}

// Close cancels the subscription, joining an in-flight delivery. Get
// keeps returning the last observed value.
func (a *AtomicObserver[T]) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.handle != nil {
		a.handle.Cancel()
		a.handle = nil
	}
}

func (a *AtomicObserver[T]) attach(source Observer[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attachLocked(source)
}

func (a *AtomicObserver[T]) attachLocked(source Observer[T]) {
	v := source.Get()
	a.val.Store(&v)
	a.handle = source.AddCallback(func(s Snapshot[T]) {
		v := s.Get()
		a.val.Store(&v)
	})
}
