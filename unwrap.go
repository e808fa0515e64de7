package observe

// Unwrap flattens one level of observer nesting: given an observer whose
// value is itself an observer handle, it derives an observer of the
// inner value. Both a change of which inner observer is selected and a
// change of the selected observer's own value become visible updates;
// when the selection changes, the edge to the previously selected
// observer is dropped by the usual upstream diffing.
func Unwrap[T any](source Observer[Observer[T]], opts ...Option) (Observer[T], error) {
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		inner := source.Read(ctx)
		return inner.Read(ctx), nil
	}, opts...)
}
