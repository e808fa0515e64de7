package observe

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// jitterState orders delayed deliveries by source version: timers fire
// in random order, and a delayed older update must never overwrite a
// value produced by a newer update that already arrived.
type jitterState[T any] struct {
	mu        sync.Mutex
	inner     *Observable[T]
	delivered uint64
}

func (j *jitterState[T]) deliver(s Snapshot[T]) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s.Version() <= j.delivered {
		return
	}
	j.delivered = s.Version()
	// Publish while holding the lock so inner writes land in guard
	// order; SetValue never blocks.
	j.inner.SetValue(s.Get())
}

// WithJitter derives an observer that forwards source updates after a
// randomized delay drawn uniformly from [minDelay, maxDelay] per update.
// Deliveries are monotonic by source version, the latest pending value
// is always delivered once its delay elapses, and downstream activity
// that merely re-reads the result never forces an early delivery.
//
// The delay stage stays subscribed to source only while the returned
// observer's node is alive. The source-side callback holds the stage
// weakly and cancels itself once the stage has been collected, so
// dropping the last handle to the result tears the subscription down.
func WithJitter[T any](source Observer[T], minDelay, maxDelay time.Duration, opts ...Option) (Observer[T], error) {
	if minDelay < 0 || maxDelay < minDelay {
		return Observer[T]{}, fmt.Errorf("observe: invalid jitter range [%v, %v]", minDelay, maxDelay)
	}

	seed := source.GetSnapshot()
	j := &jitterState[T]{
		inner:     NewObservable(seed.Get(), opts...),
		delivered: seed.Version(),
	}

	stage := weak.Make(j)
	var handle atomic.Pointer[CallbackHandle]
	h := source.AddCallback(func(s Snapshot[T]) {
		st := stage.Value()
		if st == nil {
			if h := handle.Load(); h != nil {
				h.Cancel()
			}
			return
		}
		delay := minDelay
		if spread := maxDelay - minDelay; spread > 0 {
			delay += time.Duration(rand.Int64N(int64(spread) + 1))
		}
		if delay == 0 {
			st.deliver(s)
			return
		}
		time.AfterFunc(delay, func() {
			st.deliver(s)
		})
	})
	handle.Store(h)

	out := j.inner.Observer()
	out.core.pin(j)
	return out, nil
}
