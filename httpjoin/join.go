package httpjoin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fluxgraph/fluxgraph"
)

// DefaultMaxInFlight bounds the number of concurrent HTTP requests a Join
// issues, per the engine's rule that stateful external-call operators cap
// concurrent in-flight work at a fixed limit.
const DefaultMaxInFlight = 8

// RequestFunc derives an HTTP request from an item flowing through the
// graph: method, URL, request body, and any headers.
type RequestFunc[T any] func(T) (method, url string, body fluxgraph.Variant, headers map[string]string)

// MergeFunc folds an HTTP response into the item that triggered the
// request, producing the value Join emits downstream.
type MergeFunc[T any] func(item T, response fluxgraph.Variant) T

// OnError decides how Join handles a per-item request failure: returning
// (value, true) suppresses the error and emits value instead; returning
// (_, false) drops the item without reporting the error through the
// operator's fail callback.
type OnError[T any] func(item T, err error) (T, bool)

// Join enriches items flowing through the graph with an HTTP response,
// issued through an fluxgraph.HTTPClient. It is the engine's example
// stateful operator backed by an external call, and bounds in-flight
// requests with a worker pool sized to MaxInFlight.
type Join[T any] struct {
	name        string
	state       atomic.Int32
	client      fluxgraph.HTTPClient
	maxInFlight int
	request     RequestFunc[T]
	merge       MergeFunc[T]
	onError     OnError[T]
}

// NewJoin creates a Join calling client for each item per requestFn,
// merging the response into the emitted value via mergeFn. MaxInFlight
// defaults to DefaultMaxInFlight.
func NewJoin[T any](name string, client fluxgraph.HTTPClient, requestFn RequestFunc[T], mergeFn MergeFunc[T]) *Join[T] {
	return &Join[T]{
		name:        name,
		client:      client,
		maxInFlight: DefaultMaxInFlight,
		request:     requestFn,
		merge:       mergeFn,
	}
}

// WithMaxInFlight overrides the concurrent-request cap.
func (j *Join[T]) WithMaxInFlight(n int) *Join[T] {
	if n > 0 {
		j.maxInFlight = n
	}
	return j
}

// WithOnError installs a recovery hook for per-item request failures.
func (j *Join[T]) WithOnError(fn OnError[T]) *Join[T] {
	j.onError = fn
	return j
}

func (j *Join[T]) Name() string { return j.name }

func (j *Join[T]) State() fluxgraph.OperatorState {
	return fluxgraph.OperatorState(j.state.Load())
}

func (j *Join[T]) setState(s fluxgraph.OperatorState) { j.state.Store(int32(s)) }

type seqMsg[T any] struct {
	msg  fluxgraph.Message[T]
	seq  uint64
	drop bool
}

// Process issues one HTTP request per live item, through a pool of
// maxInFlight workers, and reassembles responses in input order before
// forwarding. The termination sentinel is sequenced alongside live items
// and passed straight through, unjoined.
func (j *Join[T]) Process(ctx context.Context, fail func(error), in <-chan fluxgraph.Message[T]) <-chan fluxgraph.Message[T] {
	out := make(chan fluxgraph.Message[T], fluxgraph.InboundQueueSize)
	sequenced := make(chan seqMsg[T], j.maxInFlight)
	results := make(chan seqMsg[T], j.maxInFlight)

	go func() {
		j.setState(fluxgraph.StateRunning)
		defer close(sequenced)
		var seq uint64
		for msg := range in {
			select {
			case sequenced <- seqMsg[T]{msg: msg, seq: seq}:
				seq++
			case <-ctx.Done():
				return
			}
			if msg.Sentinel {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < j.maxInFlight; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range sequenced {
				if item.msg.Sentinel {
					select {
					case results <- item:
					case <-ctx.Done():
					}
					continue
				}

				merged, err := j.joinOne(ctx, item.msg.Value)
				drop := false
				if err != nil {
					if j.onError != nil {
						recovered, ok := j.onError(item.msg.Value, err)
						if ok {
							merged = recovered
						} else {
							drop = true
						}
					} else {
						fail(fluxgraph.NewFlowError(fluxgraph.KindOperatorFailure, j.name, err))
						drop = true
					}
				}

				select {
				case results <- seqMsg[T]{msg: fluxgraph.Item(merged), seq: item.seq, drop: drop}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(out)
		pending := make(map[uint64]seqMsg[T])
		var next uint64
		for r := range results {
			pending[r.seq] = r
			for {
				item, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if item.drop {
					continue
				}
				select {
				case out <- item.msg:
				case <-ctx.Done():
					j.setState(fluxgraph.StateFailed)
					return
				}
				if item.msg.Sentinel {
					j.setState(fluxgraph.StateTerminated)
					return
				}
			}
		}
		j.setState(fluxgraph.StateTerminated)
	}()

	return out
}

func (j *Join[T]) joinOne(ctx context.Context, item T) (T, error) {
	method, url, body, headers := j.request(item)
	resp, err := j.client.Request(ctx, method, url, body, headers)
	if err != nil {
		var zero T
		return zero, err
	}
	return j.merge(item, resp), nil
}
