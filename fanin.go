package fluxgraph

import (
	"context"
	"sync"
)

// FanIn merges several upstream Message channels into one. It forwards the
// termination sentinel downstream exactly once, only after every upstream
// has sentineled (or closed) — a single early producer finishing must not
// truncate the others still in flight.
type FanIn[T any] struct {
	base
}

// NewFanIn creates a FanIn merging point.
func NewFanIn[T any](name string) *FanIn[T] {
	return &FanIn[T]{base: newBase(name)}
}

// Merge merges ins into one Message channel.
func (f *FanIn[T]) Merge(ctx context.Context, ins ...<-chan Message[T]) <-chan Message[T] {
	out := make(chan Message[T], InboundQueueSize)
	var wg sync.WaitGroup

	f.setState(StateRunning)
	for _, in := range ins {
		wg.Add(1)
		go func(ch <-chan Message[T]) {
			defer wg.Done()
			for msg := range ch {
				if msg.Sentinel {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}(in)
	}

	go func() {
		wg.Wait()
		f.setState(StateDraining)
		select {
		case out <- Terminator[T]():
		case <-ctx.Done():
		}
		f.setState(StateTerminated)
		close(out)
	}()

	return out
}
