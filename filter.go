package fluxgraph

import "context"

// FilterOperator selectively passes items through a flow based on a
// predicate. Items for which the predicate returns true are forwarded
// unchanged; everything else is discarded.
type FilterOperator[T any] struct {
	base
	predicate func(T) bool
}

// NewFilterOperator creates a FilterOperator over predicate.
func NewFilterOperator[T any](name string, predicate func(T) bool) *FilterOperator[T] {
	return &FilterOperator[T]{base: newBase(name), predicate: predicate}
}

func (f *FilterOperator[T]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	return runLoop(ctx, &f.base, fail, in, func(v T) ([]T, error) {
		if f.predicate(v) {
			return []T{v}, nil
		}
		return nil, nil
	}, nil)
}
