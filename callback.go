package observe

import (
	"sync"
	"time"
)

// subscriber is one callback registration on a node. Deliveries are
// buffered per subscriber and drained by at most one worker task at a
// time, giving per-handle serialization and commit-order delivery
// regardless of how workers interleave.
type subscriber struct {
	node *node
	fn   func(*snapshotData)

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []*snapshotData
	draining    bool
	firing      bool
	firingGID   uint64
	lastVersion uint64
	seeded      bool
	active      bool
}

func newSubscriber(n *node, fn func(*snapshotData)) *subscriber {
	s := &subscriber{node: n, fn: fn, active: true}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push appends a snapshot to the delivery queue and starts a drain task
// if none is running. After the first delivery, snapshots at or below
// the last queued version are dropped: the initial registration fire
// and the first natural commit can race, and delivery must stay
// monotonic.
func (s *subscriber) push(sd *snapshotData) {
	s.mu.Lock()
	if !s.active || (s.seeded && sd.version <= s.lastVersion) {
		s.mu.Unlock()
		return
	}
	s.seeded = true
	s.lastVersion = sd.version
	s.pending = append(s.pending, sd)
	start := !s.draining
	s.draining = true
	s.mu.Unlock()
	if start {
		s.node.mgr.enqueue(s.drain)
	}
}

func (s *subscriber) drain() {
	for {
		s.mu.Lock()
		if !s.active || len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		sd := s.pending[0]
		s.pending = s.pending[1:]
		s.firing = true
		s.firingGID = gid()
		s.mu.Unlock()

		start := time.Now()
		s.fn(sd)
		s.node.mgr.emitCallback(CallbackEvent{Node: s.node.info(), Version: sd.version, Duration: time.Since(start)})

		s.mu.Lock()
		s.firing = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// cancel disables future firings. If a firing is executing on another
// goroutine it blocks until that firing completes, so the callback's
// captured state is never used after cancel returns. Cancelling from
// inside the callback itself returns immediately.
func (s *subscriber) cancel() {
	s.mu.Lock()
	s.active = false
	s.pending = nil
	self := gid()
	for s.firing && s.firingGID != self {
		s.cond.Wait()
	}
	s.mu.Unlock()
	s.node.removeSubscriber(s)
}

// CallbackHandle controls one callback registration.
type CallbackHandle struct {
	once sync.Once
	sub  *subscriber
}

// Cancel deregisters the callback. Idempotent; joins an in-flight firing
// on another goroutine before returning.
func (h *CallbackHandle) Cancel() {
	h.once.Do(func() {
		h.sub.cancel()
	})
}
