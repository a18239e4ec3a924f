package fluxgraph

import "context"

// fanOut duplicates every Message — live item or sentinel — from a single
// input channel to count output channels, one per branch. Because each
// message is written to every branch before the loop advances to the next
// message, the sentinel can only reach a branch after every live item that
// preceded it has reached all branches: this is what gives fan-out fairness
// (spec testable property) without any extra bookkeeping.
func fanOut[T any](ctx context.Context, count int, in <-chan Message[T]) []chan Message[T] {
	outs := make([]chan Message[T], count)
	for i := range outs {
		outs[i] = make(chan Message[T], InboundQueueSize)
	}

	go func() {
		defer func() {
			for _, ch := range outs {
				close(ch)
			}
		}()

		for msg := range in {
			for _, ch := range outs {
				select {
				case ch <- msg:
				case <-ctx.Done():
					return
				}
			}
			if msg.Sentinel {
				return
			}
		}
	}()

	return outs
}
