package observe

import "time"

// NodeInfo identifies a node for hooks and errors: the stable arena id
// plus the name given via WithName, or a generated one.
type NodeInfo struct {
	ID   uint64
	Name string
}

// RecomputeEvent describes one recompute attempt of a derived node.
type RecomputeEvent struct {
	Node     NodeInfo
	Round    uint64
	Duration time.Duration
	// Err is non-nil for contained asynchronous failures. The node kept
	// its previous value and nothing propagated downstream.
	Err error
}

// CommitEvent describes a committed snapshot.
type CommitEvent struct {
	Node    NodeInfo
	Version uint64
}

// CallbackEvent describes one subscriber invocation.
type CallbackEvent struct {
	Node     NodeInfo
	Version  uint64
	Duration time.Duration
}

// Hook receives scheduler lifecycle events. Implementations should embed
// BaseHook and override what they need.
type Hook interface {
	// Name returns the hook's name.
	Name() string

	// Init is called once, when the owning manager is constructed.
	Init(m *Manager)

	// OnRecompute is called after every recompute attempt, successful
	// or contained.
	OnRecompute(ev RecomputeEvent)

	// OnCommit is called after every committed snapshot.
	OnCommit(ev CommitEvent)

	// OnCallback is called after every subscriber invocation.
	OnCallback(ev CallbackEvent)
}

// BaseHook provides default no-op implementations for Hook methods.
type BaseHook struct {
	name string
}

// NewBaseHook creates a new base hook with the given name.
func NewBaseHook(name string) BaseHook {
	return BaseHook{name: name}
}

func (h *BaseHook) Name() string {
	return h.name
}

func (h *BaseHook) Init(m *Manager) {
}

func (h *BaseHook) OnRecompute(ev RecomputeEvent) {
}

func (h *BaseHook) OnCommit(ev CommitEvent) {
}

func (h *BaseHook) OnCallback(ev CallbackEvent) {
}
