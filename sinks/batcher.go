package sinks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fluxgraph/fluxgraph"
)

// BatchConfig configures BatchingSink's dual size/latency trigger.
type BatchConfig struct {
	// MaxLatency is the longest a partial batch waits before being flushed.
	MaxLatency time.Duration
	// MaxSize is the batch size that triggers an immediate flush.
	MaxSize int
}

// BatchingSink is a pass-through Operator that groups items into batches by
// size or latency, whichever comes first, and writes each batch to a
// StreamSink as one partition write. It adapts the teacher's size/latency
// Batcher to write through an external sink instead of emitting batches
// downstream, since durable writes are this engine's graph-exit concern.
type BatchingSink[T any] struct {
	name      string
	state     atomic.Int32
	config    BatchConfig
	clock     fluxgraph.Clock
	sink      fluxgraph.StreamSink
	path      string
	partition func(T) string
	encode    func([]T) fluxgraph.Variant
}

// NewBatchingSink creates a BatchingSink writing through sink at path,
// partitioning and encoding batches with partitionFn/encodeFn.
func NewBatchingSink[T any](name string, config BatchConfig, clock fluxgraph.Clock, sink fluxgraph.StreamSink, path string, partitionFn func(T) string, encodeFn func([]T) fluxgraph.Variant) *BatchingSink[T] {
	if config.MaxSize <= 0 {
		config.MaxSize = 1
	}
	return &BatchingSink[T]{
		name:      name,
		config:    config,
		clock:     clock,
		sink:      sink,
		path:      path,
		partition: partitionFn,
		encode:    encodeFn,
	}
}

func (b *BatchingSink[T]) Name() string { return b.name }

func (b *BatchingSink[T]) State() fluxgraph.OperatorState {
	return fluxgraph.OperatorState(b.state.Load())
}

func (b *BatchingSink[T]) setState(s fluxgraph.OperatorState) { b.state.Store(int32(s)) }

func (b *BatchingSink[T]) Process(ctx context.Context, fail func(error), in <-chan fluxgraph.Message[T]) <-chan fluxgraph.Message[T] {
	out := make(chan fluxgraph.Message[T], fluxgraph.InboundQueueSize)

	go func() {
		b.setState(fluxgraph.StateRunning)
		defer close(out)

		batch := make([]T, 0, b.config.MaxSize)
		var timer fluxgraph.Timer
		var timerC <-chan time.Time

		flush := func() {
			if len(batch) == 0 {
				return
			}
			partition := ""
			if b.partition != nil {
				partition = b.partition(batch[0])
			}
			if err := b.sink.Put(ctx, b.path, partition, b.encode(batch)); err != nil {
				fail(fluxgraph.NewFlowError(fluxgraph.KindOperatorFailure, b.name, err))
			}
			batch = make([]T, 0, b.config.MaxSize)
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				b.setState(fluxgraph.StateFailed)
				return

			case msg, ok := <-in:
				if !ok {
					flush()
					b.setState(fluxgraph.StateTerminated)
					return
				}
				if msg.Sentinel {
					b.setState(fluxgraph.StateDraining)
					if timer != nil {
						timer.Stop()
					}
					flush()
					select {
					case out <- msg:
					case <-ctx.Done():
					}
					b.setState(fluxgraph.StateTerminated)
					return
				}

				batch = append(batch, msg.Value)
				if len(batch) == 1 && b.config.MaxLatency > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = b.clock.NewTimer(b.config.MaxLatency)
					timerC = timer.C()
				}

				select {
				case out <- msg:
				case <-ctx.Done():
					b.setState(fluxgraph.StateFailed)
					return
				}

				if len(batch) >= b.config.MaxSize {
					if timer != nil {
						timer.Stop()
						timer = nil
						timerC = nil
					}
					flush()
				}

			case <-timerC:
				flush()
				timer = nil
				timerC = nil
			}
		}
	}()

	return out
}
