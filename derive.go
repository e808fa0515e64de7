package observe

// Typed constructors for the common case of a fixed dependency tuple.
// They are plain sugar over MakeObserver: the closure still runs with
// full dependency tracking, so reading further observers through the
// ComputeCtx inside fn adds edges as usual.

func MakeObserver1[T any, D1 any](
	d1 Observer[D1],
	fn func(ctx *ComputeCtx, v1 D1) (T, error),
	opts ...Option,
) (Observer[T], error) {
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		return fn(ctx, d1.Read(ctx))
	}, opts...)
}

func MakeObserver2[T any, D1 any, D2 any](
	d1 Observer[D1],
	d2 Observer[D2],
	fn func(ctx *ComputeCtx, v1 D1, v2 D2) (T, error),
	opts ...Option,
) (Observer[T], error) {
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		return fn(ctx, d1.Read(ctx), d2.Read(ctx))
	}, opts...)
}

func MakeObserver3[T any, D1 any, D2 any, D3 any](
	d1 Observer[D1],
	d2 Observer[D2],
	d3 Observer[D3],
	fn func(ctx *ComputeCtx, v1 D1, v2 D2, v3 D3) (T, error),
	opts ...Option,
) (Observer[T], error) {
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		return fn(ctx, d1.Read(ctx), d2.Read(ctx), d3.Read(ctx))
	}, opts...)
}

func MakeObserver4[T any, D1 any, D2 any, D3 any, D4 any](
	d1 Observer[D1],
	d2 Observer[D2],
	d3 Observer[D3],
	d4 Observer[D4],
	fn func(ctx *ComputeCtx, v1 D1, v2 D2, v3 D3, v4 D4) (T, error),
	opts ...Option,
) (Observer[T], error) {
	return MakeObserver(func(ctx *ComputeCtx) (T, error) {
		return fn(ctx, d1.Read(ctx), d2.Read(ctx), d3.Read(ctx), d4.Read(ctx))
	}, opts...)
}
