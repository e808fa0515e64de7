package observe

// Observer is a read handle to a node of the graph, root or derived.
// Observers are small copyable values; copies share the same node.
// The zero Observer is not valid.
type Observer[T any] struct {
	core *node
}

// Option configures a node at construction time.
type Option func(*nodeConfig)

type nodeConfig struct {
	mgr    *Manager
	name   string
	equals func(prev, next any) bool
}

// WithName names the node for hooks, errors and graph exports.
func WithName(name string) Option {
	return func(c *nodeConfig) {
		c.name = name
	}
}

// WithManager attaches the node to a specific manager instead of the
// process-wide default.
func WithManager(m *Manager) Option {
	return func(c *nodeConfig) {
		c.mgr = m
	}
}

func withEquals(eq func(prev, next any) bool) Option {
	return func(c *nodeConfig) {
		c.equals = eq
	}
}

func applyOptions(opts []Option) nodeConfig {
	var c nodeConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.mgr == nil {
		c.mgr = Default()
	}
	return c
}

// MakeObserver builds a derived observer from a compute closure. Every
// observer read through the closure's ComputeCtx becomes an upstream
// dependency; whenever one of them commits, the closure is re-run
// asynchronously on the manager's pool.
//
// The first value is computed synchronously, inline with construction:
// the returned observer is immediately readable, and a closure that
// fails or produces a nil value fails the construction call itself.
func MakeObserver[T any](compute func(ctx *ComputeCtx) (T, error), opts ...Option) (Observer[T], error) {
	cfg := applyOptions(opts)
	n := cfg.mgr.newNode(cfg.name, func(ctx *ComputeCtx) (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	n.equals = cfg.equals
	if err := buildInitial(n); err != nil {
		return Observer[T]{}, err
	}
	return Observer[T]{core: n}, nil
}

// buildInitial runs the very first compute on the constructing
// goroutine and installs the initial snapshot without propagation
// (nothing can depend on the node yet).
func buildInitial(n *node) error {
	n.computing.Store(true)
	ctx := &ComputeCtx{node: n, mgr: n.mgr, round: n.mgr.clock.Load(), reads: make(map[*node]uint64)}
	v, err := runCompute(n.compute, ctx)
	if err != nil {
		n.computing.Store(false)
		return err
	}
	n.swapUpstream(ctx.reads)
	var version uint64
	for _, ver := range ctx.reads {
		if ver > version {
			version = ver
		}
	}
	n.snap.Store(&snapshotData{value: v, version: version})
	n.processed.Store(version)
	n.computing.Store(false)
	// An upstream may have committed between our read and our edge
	// becoming visible to its propagation.
	n.recheck(ctx.reads)
	return nil
}

// GetSnapshot returns the latest committed snapshot. It is a pure cache
// read: it never blocks and never triggers recomputation.
func (o Observer[T]) GetSnapshot() Snapshot[T] {
	return typedSnapshot[T](o.core.snap.Load())
}

// Get returns the latest committed value.
func (o Observer[T]) Get() T {
	return o.GetSnapshot().Get()
}

// Read returns the current value and records this observer as an
// upstream dependency of the node being computed.
func (o Observer[T]) Read(ctx *ComputeCtx) T {
	return ctx.readNode(o.core).value.(T)
}

// ReadSnapshot is Read, keeping the version alongside the value.
func (o Observer[T]) ReadSnapshot(ctx *ComputeCtx) Snapshot[T] {
	return typedSnapshot[T](ctx.readNode(o.core))
}

// AddCallback registers fn to run after every committed update of this
// observer, and once immediately with the current value. Invocations
// happen on manager workers, serialized per handle and delivered in
// commit order.
func (o Observer[T]) AddCallback(fn func(Snapshot[T])) *CallbackHandle {
	s := newSubscriber(o.core, func(sd *snapshotData) {
		fn(typedSnapshot[T](sd))
	})
	o.core.addSubscriber(s)
	s.push(o.core.snap.Load())
	return &CallbackHandle{sub: s}
}
