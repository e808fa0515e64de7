package observe

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithJitterInvalidRange(t *testing.T) {
	m := newTestManager(t)
	observable := NewObservable(1, WithManager(m))

	_, err := WithJitter(observable.Observer(), 10*time.Millisecond, 5*time.Millisecond, WithManager(m))
	require.Error(t, err)

	_, err = WithJitter(observable.Observer(), -time.Millisecond, time.Millisecond, WithManager(m))
	require.Error(t, err)
}

func TestWithJitterZeroDelay(t *testing.T) {
	m := newTestManager(t)
	observable := NewObservable(1, WithManager(m))

	delayed, err := WithJitter(observable.Observer(), 0, 0, WithManager(m))
	require.NoError(t, err)
	require.Equal(t, 1, delayed.Get())

	observable.SetValue(2)
	m.WaitForAllUpdates()
	require.Equal(t, 2, delayed.Get())
}

func TestWithJitterDelays(t *testing.T) {
	m := newTestManager(t)
	observable := NewObservable(0, WithManager(m))

	delayed, err := WithJitter(observable.Observer(), 20*time.Millisecond, 40*time.Millisecond, WithManager(m))
	require.NoError(t, err)

	start := time.Now()
	observable.SetValue(1)
	m.WaitForAllUpdates()

	// The update is in flight, not yet visible.
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond && delayed.Get() == 1 {
		t.Fatalf("update visible after %v, before the minimum delay", elapsed)
	}

	require.Eventually(t, func() bool { return delayed.Get() == 1 },
		5*time.Second, time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWithJitterMonotonic(t *testing.T) {
	m := newTestManager(t)
	observable := NewObservable(0, WithManager(m))

	delayed, err := WithJitter(observable.Observer(), 0, 10*time.Millisecond, WithManager(m))
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []int
	handle := delayed.AddCallback(func(s Snapshot[int]) {
		mu.Lock()
		seen = append(seen, s.Get())
		mu.Unlock()
	})
	defer handle.Cancel()

	for i := 1; i <= 50; i++ {
		observable.SetValue(i)
		m.WaitForAllUpdates()
	}

	// The latest value always lands once its delay elapses.
	require.Eventually(t, func() bool { return delayed.Get() == 50 },
		5*time.Second, time.Millisecond)
	m.WaitForAllUpdates()

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i+1 < len(seen); i++ {
		require.Less(t, seen[i], seen[i+1], "an older delayed update must never overwrite a newer one")
	}
}

func TestWithJitterDroppedStageUnsubscribes(t *testing.T) {
	m := newTestManager(t)
	source := NewObservable(0, WithManager(m))

	func() {
		delayed, err := WithJitter(source.Observer(), 0, 0, WithManager(m))
		require.NoError(t, err)
		source.SetValue(1)
		m.WaitForAllUpdates()
		require.Equal(t, 1, delayed.Get())
	}()

	// Once the stage is collected, the next source commit makes its
	// callback cancel itself and drop off the subscriber list.
	core := source.Observer().core
	released := false
	for i := 2; i < 100 && !released; i++ {
		runtime.GC()
		source.SetValue(i)
		m.WaitForAllUpdates()
		core.mu.Lock()
		released = len(core.subscribers) == 0
		core.mu.Unlock()
	}
	require.True(t, released, "stage subscription outlived the observer")
}
