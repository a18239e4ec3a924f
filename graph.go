package fluxgraph

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// sourceMarker is the sentinel first element every BuildFlow call requires,
// mirroring the reference builder's explicit flow.Source() node.
type sourceMarker[T any] struct{}

// Source marks the start of a flow passed to BuildFlow.
func Source[T any]() any { return sourceMarker[T]{} }

// branchSet is produced by Branches and represents one fan-out point: the
// preceding node's output is duplicated to every branch, and each branch's
// terminal reducer result is folded into one value via combine.
type branchSet[T any] struct {
	combine  func(T, T) T
	branches [][]any
}

// Branches declares a fan-out point relative to the previous flow step.
// Each branch is an independent chain of Operator[T] steps ending in a
// *Reducer[T]; combine folds the branches' reducer outputs into one value.
func Branches[T any](combine func(a, b T) T, branches ...[]any) any {
	return &branchSet[T]{combine: combine, branches: branches}
}

// Reducer is a terminal flow node: it folds every live item it receives
// into a single accumulator, exposed at the controller once the sentinel
// (or channel close) arrives.
type Reducer[T any] struct {
	base
	initial T
	fn      func(T, T) T
	sinkFn  func(T) error
}

// NewReducer creates a Reducer starting from initial and folding with fn.
func NewReducer[T any](initial T, fn func(acc, item T) T) *Reducer[T] {
	return &Reducer[T]{base: newBase("reducer"), initial: initial, fn: fn}
}

// NewSinkReducer adapts a side-effecting sink function into a terminal
// Reducer: every item is written via fn, and the reducer's final value is
// the last item observed (or the zero value if none arrived). A write
// error surfaces as KindOperatorFailure through fail, same as any other
// operator.
func NewSinkReducer[T any](name string, fn func(T) error) *Reducer[T] {
	r := NewReducer(*new(T), func(_, item T) T { return item })
	r.name = name
	r.sinkFn = fn
	return r
}

func (r *Reducer[T]) run(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		r.setState(StateRunning)
		acc := r.initial
		for {
			select {
			case <-ctx.Done():
				r.setState(StateFailed)
				return
			case msg, ok := <-in:
				if !ok {
					r.setState(StateTerminated)
					out <- acc
					return
				}
				if msg.Sentinel {
					r.setState(StateDraining)
					r.setState(StateTerminated)
					out <- acc
					return
				}
				if r.sinkFn != nil {
					if err := r.sinkFn(msg.Value); err != nil {
						fail(NewFlowError(KindOperatorFailure, r.name, err))
						r.setState(StateFailed)
						return
					}
				}
				acc = r.fn(acc, msg.Value)
			}
		}
	}()
	return out
}

// Controller is the external handle returned by BuildFlow: emit events,
// terminate cooperatively, cancel immediately, or await the final result.
type Controller[T any] struct {
	ctx      context.Context
	cancel   context.CancelFunc
	source   chan Message[T]
	resultCh chan T
	logger   zerolog.Logger

	errOnce sync.Once
	errMu   sync.Mutex
	err     error
}

// WithLogger attaches a logger the controller uses to report graph-wide
// failures and cancellation. A nil logger falls back to a no-op logger.
func (c *Controller[T]) WithLogger(logger *zerolog.Logger) *Controller[T] {
	if logger == nil {
		c.logger = zerolog.Nop()
		return c
	}
	c.logger = *logger
	return c
}

func (c *Controller[T]) fail(err error) {
	c.errOnce.Do(func() {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		c.logger.Error().Err(err).Msg("graph failed")
		c.cancel()
	})
}

// Emit pushes an item to the source, blocking cooperatively if the source
// queue is full (the engine's only backpressure mechanism).
func (c *Controller[T]) Emit(v T) error {
	select {
	case c.source <- Item(v):
		return nil
	case <-c.ctx.Done():
		return NewFlowError(KindOperatorFailure, "", flowErrString("graph already cancelled"))
	}
}

// TryEmit is Emit's non-blocking counterpart: it fails with KindBackpressure
// instead of blocking when the source queue is full.
func (c *Controller[T]) TryEmit(v T) error {
	select {
	case c.source <- Item(v):
		return nil
	case <-c.ctx.Done():
		return NewFlowError(KindOperatorFailure, "", flowErrString("graph already cancelled"))
	default:
		return NewFlowError(KindBackpressure, "", nil)
	}
}

// Terminate enqueues the termination sentinel. It races behind any events
// already queued ahead of it; Cancel, not Terminate, is what aborts
// immediately.
func (c *Controller[T]) Terminate() {
	c.logger.Debug().Msg("graph terminate requested")
	select {
	case c.source <- Terminator[T]():
	case <-c.ctx.Done():
	}
}

// Cancel aborts every operator immediately and causes AwaitTermination to
// fail once outstanding goroutines unwind.
func (c *Controller[T]) Cancel() {
	c.logger.Debug().Msg("graph cancel requested")
	c.fail(NewFlowError(KindOperatorFailure, "", flowErrString("cancelled")))
}

// AwaitTermination blocks until the flow's terminal reducer(s) produce a
// final value, or returns the first operator failure recorded anywhere in
// the graph.
func (c *Controller[T]) AwaitTermination() (T, error) {
	result := <-c.resultCh
	c.errMu.Lock()
	err := c.err
	c.errMu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// BuildFlow assembles a flow from a heterogeneous step list: Source[T]()
// must be first, followed by any mix of Operator[T] steps, a Branches(...)
// fan-out, and at least one terminal *Reducer[T]. It returns a Controller
// bound to the flow's unique source.
func BuildFlow[T any](steps []any) (*Controller[T], error) {
	if len(steps) == 0 {
		return nil, NewFlowError(KindInvalidFlowSpec, "", flowErrString("flow requires at least one step"))
	}
	if _, ok := steps[0].(sourceMarker[T]); !ok {
		return nil, NewFlowError(KindInvalidFlowSpec, "", flowErrString("flow must begin with Source[T]()"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	source := make(chan Message[T], InboundQueueSize)
	ctrl := &Controller[T]{ctx: ctx, cancel: cancel, source: source, resultCh: make(chan T, 1), logger: zerolog.Nop()}

	var cur <-chan Message[T] = source
	var resultChans []<-chan T
	var combine func(T, T) T
	terminalSeen := false

	for _, step := range steps[1:] {
		switch s := step.(type) {
		case Operator[T]:
			cur = s.Process(ctx, ctrl.fail, cur)
		case *Reducer[T]:
			resultChans = append(resultChans, s.run(ctx, ctrl.fail, cur))
			terminalSeen = true
		case *branchSet[T]:
			combine = s.combine
			branchIns := fanOut[T](ctx, len(s.branches), cur)
			for i, branchSteps := range s.branches {
				var bcur <-chan Message[T] = branchIns[i]
				for _, bs := range branchSteps {
					switch b := bs.(type) {
					case Operator[T]:
						bcur = b.Process(ctx, ctrl.fail, bcur)
					case *Reducer[T]:
						resultChans = append(resultChans, b.run(ctx, ctrl.fail, bcur))
						terminalSeen = true
					default:
						cancel()
						return nil, NewFlowError(KindInvalidFlowSpec, "", flowErrString("branch step must be an Operator or *Reducer"))
					}
				}
			}
		default:
			cancel()
			return nil, NewFlowError(KindInvalidFlowSpec, "", flowErrString("unrecognized flow step"))
		}
	}

	if !terminalSeen {
		cancel()
		return nil, NewFlowError(KindInvalidFlowSpec, "", flowErrString("flow requires at least one terminal reducer"))
	}

	go func() {
		var acc T
		first := true
		for _, rc := range resultChans {
			v := <-rc
			if first {
				acc = v
				first = false
			} else if combine != nil {
				acc = combine(acc, v)
			}
		}
		ctrl.resultCh <- acc
	}()

	return ctrl, nil
}
