package fluxgraph

import "context"

// FlatMapOperator expands each item into zero or more items using fn,
// generalizing the teacher's slice-flattening Flatten into a fused
// map-then-flatten step (the spec's scenarios need `x -> [x, x*10]` in one
// hop rather than a separate map producing slices).
type FlatMapOperator[T any] struct {
	base
	fn func(T) ([]T, error)
}

// NewFlatMapOperator creates a FlatMapOperator over fn.
func NewFlatMapOperator[T any](name string, fn func(T) ([]T, error)) *FlatMapOperator[T] {
	return &FlatMapOperator[T]{base: newBase(name), fn: fn}
}

func (f *FlatMapOperator[T]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	return runLoop(ctx, &f.base, fail, in, f.fn, nil)
}
