package fluxgraph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// OperatorState tracks one operator's lifecycle. Terminal states are
// absorbing: once Terminated or Failed, an operator never re-enters Running.
type OperatorState int32

const (
	StateIdle OperatorState = iota
	StateRunning
	StateDraining
	StateTerminated
	StateFailed
)

func (s OperatorState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// base is embedded by every concrete operator to provide the shared state
// machine plumbing without duplicating atomic bookkeeping in each one.
type base struct {
	name   string
	state  atomic.Int32
	logger zerolog.Logger
}

// newBase constructs a base with a no-op logger. Operators that want
// observability call WithLogger (or have one injected by their constructor).
func newBase(name string) base {
	return base{name: name, logger: zerolog.Nop()}
}

func (b *base) Name() string         { return b.name }
func (b *base) State() OperatorState { return OperatorState(b.state.Load()) }

func (b *base) setState(s OperatorState) {
	prev := OperatorState(b.state.Swap(int32(s)))
	if prev == s {
		return
	}
	if s == StateFailed {
		b.logger.Error().Str("operator", b.name).Str("from", prev.String()).Str("to", s.String()).Msg("operator failed")
		return
	}
	b.logger.Debug().Str("operator", b.name).Str("from", prev.String()).Str("to", s.String()).Msg("operator state transition")
}

// WithLogger attaches a logger to the operator. A nil logger falls back to
// a no-op logger rather than leaving the zero value to panic on first use.
func (b *base) WithLogger(logger *zerolog.Logger) {
	if logger == nil {
		b.logger = zerolog.Nop()
		return
	}
	b.logger = *logger
}

// Operator is a single stateful stage: it reads Messages from in, does work,
// and returns a channel of Messages for the next stage. Process must forward
// the termination sentinel, after any pending flush, as the last message it
// ever writes to its output.
type Operator[T any] interface {
	Name() string
	State() OperatorState
	Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T]
}

// runLoop implements the canonical per-operator state machine shared by the
// linear transform operators (map/filter/flatmap and friends): Running as
// soon as the loop starts, Draining once the sentinel arrives, Terminated
// after flush+forward, or Failed on context cancellation or an unrecovered
// step error.
//
// step computes zero or more output values for one live input value. An
// error or panic inside step is captured as KindOperatorFailure (a
// *FlowError returned by step keeps its own kind) and reported through
// fail, which the controller wires to cancel the whole graph.
// flush (optional) produces any values an operator needs to emit once, at
// drain time, before forwarding the sentinel (e.g. a batching operator's
// partial batch).
func runLoop[T any](ctx context.Context, b *base, fail func(error), in <-chan Message[T], step func(T) ([]T, error), flush func() []T) <-chan Message[T] {
	out := make(chan Message[T], InboundQueueSize)
	go func() {
		b.setState(StateRunning)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.setState(StateFailed)
				return
			case msg, ok := <-in:
				if !ok {
					b.setState(StateTerminated)
					return
				}
				if msg.Sentinel {
					b.setState(StateDraining)
					if flush != nil {
						for _, v := range flush() {
							select {
							case out <- Item(v):
							case <-ctx.Done():
								b.setState(StateFailed)
								return
							}
						}
					}
					select {
					case out <- Terminator[T]():
					case <-ctx.Done():
					}
					b.setState(StateTerminated)
					return
				}

				vals, err := safeStep(b.name, step, msg.Value)
				if err != nil {
					fail(err)
					b.setState(StateFailed)
					return
				}
				for _, v := range vals {
					select {
					case out <- Item(v):
					case <-ctx.Done():
						b.setState(StateFailed)
						return
					}
				}
			}
		}
	}()
	return out
}

func safeStep[T any](name string, step func(T) ([]T, error), v T) (result []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewFlowError(KindOperatorFailure, name, fmt.Errorf("panic: %v", r))
		}
	}()
	result, stepErr := step(v)
	if stepErr != nil {
		if fe, ok := stepErr.(*FlowError); ok {
			return nil, fe
		}
		return nil, NewFlowError(KindOperatorFailure, name, stepErr)
	}
	return result, nil
}
