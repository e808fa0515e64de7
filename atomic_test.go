package observe

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAtomicObserver(t *testing.T) {
	m := newTestManager(t)

	observable := NewObservable(42, WithManager(m))

	reader := NewAtomicObserver(observable.Observer())
	defer reader.Close()
	require.Equal(t, 42, reader.Get())

	observable.SetValue(43)
	m.WaitForAllUpdates()
	require.Equal(t, 43, reader.Get())
}

func TestAtomicObserverSet(t *testing.T) {
	m := newTestManager(t)

	first := NewObservable(1, WithManager(m))
	second := NewObservable(2, WithManager(m))

	reader := NewAtomicObserver(first.Observer())
	defer reader.Close()
	require.Equal(t, 1, reader.Get())

	reader.Set(second.Observer())
	require.Equal(t, 2, reader.Get())

	// The old source is fully detached once Set returns.
	first.SetValue(10)
	m.WaitForAllUpdates()
	require.Equal(t, 2, reader.Get())

	second.SetValue(20)
	m.WaitForAllUpdates()
	require.Equal(t, 20, reader.Get())
}

func TestAtomicObserverClose(t *testing.T) {
	m := newTestManager(t)

	observable := NewObservable(5, WithManager(m))
	reader := NewAtomicObserver(observable.Observer())
	reader.Close()

	observable.SetValue(6)
	m.WaitForAllUpdates()
	require.Equal(t, 5, reader.Get())

	// Set after Close stays detached.
	reader.Set(observable.Observer())
	observable.SetValue(7)
	m.WaitForAllUpdates()
	require.Equal(t, 5, reader.Get())
}

func TestMakeAtomicObserver(t *testing.T) {
	m := newTestManager(t)

	observable := NewObservable(3, WithManager(m))
	reader, err := MakeAtomicObserver(func(ctx *ComputeCtx) (int, error) {
		return observable.Observer().Read(ctx) * 3, nil
	}, WithManager(m))
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, 9, reader.Get())

	observable.SetValue(4)
	m.WaitForAllUpdates()
	require.Equal(t, 12, reader.Get())
}

func TestLocalObserver(t *testing.T) {
	m := newTestManager(t)

	observable := NewObservable(42, WithManager(m))
	local := NewLocalObserver(observable.Observer())
	require.Equal(t, 42, local.Get())
	require.Equal(t, 42, local.Get())

	observable.SetValue(43)
	m.WaitForAllUpdates()
	require.Equal(t, 43, local.Get())
}

func TestLocalObserverConcurrent(t *testing.T) {
	m := newTestManager(t)

	observable := NewObservable(0, WithManager(m))
	local := NewLocalObserver(observable.Observer())

	done := make(chan struct{})
	var g errgroup.Group
	var reads atomic.Int64
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			var last int
			for {
				select {
				case <-done:
					return nil
				default:
				}
				v := local.Get()
				if v < last {
					t.Errorf("local read went backward: %d -> %d", last, v)
					return nil
				}
				last = v
				reads.Add(1)
			}
		})
	}

	for i := 1; i <= 1000; i++ {
		observable.SetValue(i)
	}
	m.WaitForAllUpdates()
	close(done)
	require.NoError(t, g.Wait())
	require.Positive(t, reads.Load())
	require.Equal(t, 1000, local.Get())
}
