package fluxgraph

import "context"

// MapOperator transforms each item in a flow using a mapping function. It
// keeps the flow monomorphic over T so that maps compose freely inside a
// single graph without type erasure at the edges.
//
// Example:
//
//	inc := fluxgraph.NewMapOperator("inc", func(x int) (int, error) {
//	    return x + 1, nil
//	})
type MapOperator[T any] struct {
	base
	fn func(T) (T, error)
}

// NewMapOperator creates an operator that transforms every item with fn. A
// non-nil error return aborts the graph with KindOperatorFailure.
func NewMapOperator[T any](name string, fn func(T) (T, error)) *MapOperator[T] {
	return &MapOperator[T]{base: newBase(name), fn: fn}
}

func (m *MapOperator[T]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	return runLoop(ctx, &m.base, fail, in, func(v T) ([]T, error) {
		out, err := m.fn(v)
		if err != nil {
			return nil, err
		}
		return []T{out}, nil
	}, nil)
}
