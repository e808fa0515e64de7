package observe

// MakeValueObserver derives an observer that follows source but
// suppresses updates whose value equals the previous one, even though
// the underlying node recomputed. No new snapshot or version becomes
// visible downstream and no callback fires for a suppressed update.
func MakeValueObserver[T comparable](source Observer[T], opts ...Option) (Observer[T], error) {
	return MakeValueObserverEq(source, func(a, b T) bool { return a == b }, opts...)
}

// MakeValueObserverEq is MakeValueObserver with a caller-supplied
// equality relation, for value types that are not comparable or need a
// looser notion of sameness.
func MakeValueObserverEq[T any](source Observer[T], eq func(a, b T) bool, opts ...Option) (Observer[T], error) {
	opts = append(opts, withEquals(func(prev, next any) bool {
		return eq(prev.(T), next.(T))
	}))
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		return source.Read(ctx), nil
	}, opts...)
}

// MakeValueObserverFunc applies the same suppression to a derived
// compute closure instead of a single source.
func MakeValueObserverFunc[T comparable](compute func(ctx *ComputeCtx) (T, error), opts ...Option) (Observer[T], error) {
	opts = append(opts, withEquals(func(prev, next any) bool {
		return prev.(T) == next.(T)
	}))
	return MakeObserver(compute, opts...)
}
