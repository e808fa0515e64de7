package observe

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource is a hand-driven Source with instrumented fetch counters.
type fakeSource struct {
	mu     sync.Mutex
	value  int
	err    error
	notify func()

	getStart  atomic.Int64
	getFinish atomic.Int64
	getDelay  time.Duration

	unsubscribed atomic.Bool
}

func (f *fakeSource) Get() (int, error) {
	f.getStart.Add(1)
	if f.getDelay > 0 {
		time.Sleep(f.getDelay)
	}
	defer f.getFinish.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *fakeSource) Subscribe(notify func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notify = notify
	return nil
}

func (f *fakeSource) Unsubscribe() {
	f.unsubscribed.Store(true)
}

func (f *fakeSource) set(v int) {
	f.mu.Lock()
	f.value = v
	notify := f.notify
	f.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func TestSourceObserver(t *testing.T) {
	m := newTestManager(t)

	src := &fakeSource{value: 1}
	so, err := NewSourceObserver[int](src, WithManager(m))
	require.NoError(t, err)
	defer so.Close()

	observer := so.Observer()
	require.Equal(t, 1, observer.Get())
	require.Equal(t, int64(1), src.getStart.Load(), "construction fetches exactly once")

	derived, err := MakeObserver(func(ctx *ComputeCtx) (int, error) {
		return observer.Read(ctx) * 2, nil
	}, WithManager(m))
	require.NoError(t, err)
	require.Equal(t, 2, derived.Get())

	src.set(5)
	m.WaitForAllUpdates()
	require.Equal(t, 5, observer.Get())
	require.Equal(t, 10, derived.Get())
	require.Equal(t, int64(2), src.getStart.Load(), "reads never re-fetch, only notify does")
}

func TestSourceObserverFirstFetchFails(t *testing.T) {
	m := newTestManager(t)

	src := &fakeSource{err: errors.New("backend down")}
	_, err := NewSourceObserver[int](src, WithManager(m))
	require.Error(t, err)
	require.Contains(t, err.Error(), "backend down")
}

func TestSourceObserverFailedFetchContained(t *testing.T) {
	m := newTestManager(t)

	src := &fakeSource{value: 7}
	so, err := NewSourceObserver[int](src, WithManager(m))
	require.NoError(t, err)
	defer so.Close()

	src.mu.Lock()
	src.err = errors.New("transient")
	src.mu.Unlock()
	src.set(8)
	m.WaitForAllUpdates()
	require.Equal(t, 7, so.Observer().Get())

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	src.set(9)
	m.WaitForAllUpdates()
	require.Equal(t, 9, so.Observer().Get())
}

func TestSourceObserverCloseJoins(t *testing.T) {
	m := newTestManager(t)

	src := &fakeSource{value: 1}
	so, err := NewSourceObserver[int](src, WithManager(m))
	require.NoError(t, err)

	src.getDelay = 50 * time.Millisecond
	src.set(2)

	// Close while a slow re-fetch is in flight: it must join.
	so.Close()
	require.True(t, src.unsubscribed.Load())
	require.Equal(t, src.getStart.Load(), src.getFinish.Load(),
		"Close must not return while a fetch is running")

	// Notifies after Close are ignored.
	before := src.getStart.Load()
	src.set(3)
	m.WaitForAllUpdates()
	require.Equal(t, before, src.getStart.Load())
}

func TestSourceObserverCloseAfterManagerClose(t *testing.T) {
	m := New()

	src := &fakeSource{value: 1}
	so, err := NewSourceObserver[int](src, WithManager(m))
	require.NoError(t, err)

	// The pool is gone before the source fires: the re-fetch is dropped,
	// and Close must still return instead of waiting for it.
	m.Close()
	src.set(2)

	done := make(chan struct{})
	go func() {
		so.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung after manager shutdown")
	}
	require.True(t, src.unsubscribed.Load())
}
