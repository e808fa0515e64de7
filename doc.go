// Package observe provides a reactive dependency-graph engine: mutable
// observable roots feed derived, lazily-recomputed observers with
// automatic dependency tracking, coalesced asynchronous propagation and
// subscription callbacks.
//
// # Overview
//
// The package is organized around four concepts:
//
//  1. Observables: mutable roots of the graph
//  2. Observers: cached read handles to any node, root or derived
//  3. Snapshots: immutable, versioned value reads
//  4. Manager: the scheduler driving recomputation on a worker pool
//
// # Basic Usage
//
// Create a root and derive from it:
//
//	port := observe.NewObservable(8080)
//
//	addr, err := observe.MakeObserver(func(ctx *observe.ComputeCtx) (string, error) {
//	    return fmt.Sprintf(":%d", port.Observer().Read(ctx)), nil
//	})
//
// Reads made through the ComputeCtx are recorded as dependencies, so the
// graph's edges follow the closure's actual control flow: reading a
// different observer on the next recompute rewires the node.
//
// Dereference an observer anywhere, without blocking:
//
//	fmt.Println(addr.Get())          // ":8080"
//	snap := addr.GetSnapshot()       // value + version
//
// Writes propagate asynchronously and coalesce:
//
//	port.SetValue(9090)
//	observe.Default().WaitForAllUpdates()
//	fmt.Println(addr.Get())          // ":9090"
//
// # Callbacks
//
// Subscribe to every committed update, starting with the current value:
//
//	handle := addr.AddCallback(func(s observe.Snapshot[string]) {
//	    log.Println("listening on", s.Get())
//	})
//	defer handle.Cancel()
//
// Cancel joins an in-flight invocation running on another goroutine, so
// state captured by the callback is safe to free once Cancel returns.
//
// # Failure containment
//
// The first value of a derived observer is computed synchronously, and a
// closure that fails, or produces a nil value, fails the construction
// call. Once built, a failing recompute is invisible: the observer keeps
// its previous value, nothing propagates, and the closure is retried on
// the next upstream change.
//
// # Wrappers
//
// All wrappers are built purely on the Observer/Snapshot contract:
// LocalObserver (per-P cached reads), AtomicObserver (single-slot
// lock-free reads with runtime rebinding), MakeValueObserver (suppresses
// equal-value updates), MakeStaticObserver (constants), Unwrap
// (one-level flattening of Observer[Observer[T]]), SourceObserver
// (bridges an external push-capable source), and WithJitter (randomized
// delivery delay that stays monotonic in source versions).
//
// # Managers
//
// A process-wide manager is initialized on first use. Tests usually
// inject their own:
//
//	m := observe.New(observe.WithWorkers(4))
//	defer m.Close()
//	root := observe.NewObservable(1, observe.WithManager(m))
//
// Hooks (see the extensions subpackage) observe recomputes, commits and
// callback firings for logging, metrics and graph debugging.
package observe
