package httpjoin

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fluxgraph/fluxgraph"
)

// ErrCircuitOpen is returned by CircuitBreaker.Request when the circuit is
// open and rejecting requests without reaching the wrapped client.
var ErrCircuitOpen = circuitOpenError{}

type circuitOpenError struct{}

func (circuitOpenError) Error() string { return "httpjoin: circuit open" }

// State is the circuit breaker's current disposition toward new requests.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitStats snapshots a CircuitBreaker's counters at a point in time.
type CircuitStats struct {
	Requests            int64
	Failures            int64
	Successes           int64
	ConsecutiveFailures int64
	LastFailureTime     time.Time
	State               State
}

// CircuitBreaker wraps an fluxgraph.HTTPClient and protects it from
// cascading failures: once the failure rate reaches a threshold over a
// minimum sample, requests are rejected outright until a recovery timeout
// elapses, at which point a limited number of half-open probes decide
// whether to close again or reopen.
type CircuitBreaker struct {
	client           fluxgraph.HTTPClient
	name             string
	failureThreshold float64
	minRequests      int64
	recoveryTimeout  time.Duration
	halfOpenRequests int64
	requestTimeout   time.Duration
	clock            fluxgraph.Clock

	state           atomic.Int32
	lastStateChange fluxgraph.AtomicTime

	requests            atomic.Int64
	failures            atomic.Int64
	successes           atomic.Int64
	consecutiveFailures atomic.Int64
	lastFailureTime     fluxgraph.AtomicTime

	halfOpenAttempts atomic.Int64
	halfOpenFailures atomic.Int64

	onStateChange func(from, to State)
	onOpen        func(stats CircuitStats)
}

// NewCircuitBreaker wraps client with default thresholds: 50% failure rate,
// 10 request minimum sample, 30s recovery timeout, 3 half-open probes, 5s
// per-request timeout. Use the fluent setters to override.
func NewCircuitBreaker(client fluxgraph.HTTPClient, clock fluxgraph.Clock) *CircuitBreaker {
	cb := &CircuitBreaker{
		client:           client,
		name:             "http-join-circuit",
		failureThreshold: 0.5,
		minRequests:      10,
		recoveryTimeout:  30 * time.Second,
		halfOpenRequests: 3,
		requestTimeout:   5 * time.Second,
		clock:            clock,
	}
	cb.state.Store(int32(StateClosed))
	cb.lastStateChange.Store(clock.Now())
	return cb
}

func (cb *CircuitBreaker) FailureThreshold(threshold float64) *CircuitBreaker {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	cb.failureThreshold = threshold
	return cb
}

func (cb *CircuitBreaker) MinRequests(minReqs int64) *CircuitBreaker {
	if minReqs < 1 {
		minReqs = 1
	}
	cb.minRequests = minReqs
	return cb
}

func (cb *CircuitBreaker) RecoveryTimeout(timeout time.Duration) *CircuitBreaker {
	if timeout < 0 {
		timeout = 0
	}
	cb.recoveryTimeout = timeout
	return cb
}

func (cb *CircuitBreaker) HalfOpenRequests(requests int64) *CircuitBreaker {
	if requests < 1 {
		requests = 1
	}
	cb.halfOpenRequests = requests
	return cb
}

func (cb *CircuitBreaker) RequestTimeout(timeout time.Duration) *CircuitBreaker {
	if timeout > 0 {
		cb.requestTimeout = timeout
	}
	return cb
}

func (cb *CircuitBreaker) WithName(name string) *CircuitBreaker {
	cb.name = name
	return cb
}

func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) *CircuitBreaker {
	cb.onStateChange = fn
	return cb
}

func (cb *CircuitBreaker) OnOpen(fn func(stats CircuitStats)) *CircuitBreaker {
	cb.onOpen = fn
	return cb
}

// Request implements fluxgraph.HTTPClient. A request rejected by an open
// circuit returns ErrCircuitOpen without reaching the wrapped client.
func (cb *CircuitBreaker) Request(ctx context.Context, method, url string, body fluxgraph.Variant, headers map[string]string) (fluxgraph.Variant, error) {
	if !cb.allowRequest() {
		return fluxgraph.NullVariant, ErrCircuitOpen
	}

	reqCtx, cancel := context.WithTimeout(ctx, cb.requestTimeout)
	defer cancel()

	result, err := cb.client.Request(reqCtx, method, url, body, headers)
	if err != nil {
		cb.recordFailure()
		return fluxgraph.NullVariant, err
	}
	cb.recordSuccess()
	return result, nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	state := State(cb.state.Load())

	switch state {
	case StateClosed:
		return true
	case StateOpen:
		lastChange := cb.lastStateChange.Load()
		if cb.clock.Now().Sub(lastChange) >= cb.recoveryTimeout {
			cb.transitionToHalfOpen()
			return cb.allowHalfOpenRequest()
		}
		return false
	case StateHalfOpen:
		return cb.allowHalfOpenRequest()
	default:
		return false
	}
}

func (cb *CircuitBreaker) allowHalfOpenRequest() bool {
	attempts := cb.halfOpenAttempts.Add(1)
	if attempts > cb.halfOpenRequests {
		cb.evaluateHalfOpenResults()
		return false
	}
	return true
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.requests.Add(1)
	cb.successes.Add(1)
	cb.consecutiveFailures.Store(0)

	if State(cb.state.Load()) == StateHalfOpen {
		if cb.halfOpenAttempts.Load() >= cb.halfOpenRequests {
			cb.evaluateHalfOpenResults()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.requests.Add(1)
	cb.failures.Add(1)
	cb.consecutiveFailures.Add(1)
	cb.lastFailureTime.Store(cb.clock.Now())

	switch State(cb.state.Load()) {
	case StateClosed:
		if cb.shouldOpen() {
			cb.transitionToOpen()
		}
	case StateHalfOpen:
		cb.halfOpenFailures.Add(1)
		if cb.halfOpenAttempts.Load() >= cb.halfOpenRequests {
			cb.evaluateHalfOpenResults()
		}
	}
}

func (cb *CircuitBreaker) shouldOpen() bool {
	requests := cb.requests.Load()
	if requests < cb.minRequests {
		return false
	}
	failureRate := float64(cb.failures.Load()) / float64(requests)
	return failureRate >= cb.failureThreshold
}

func (cb *CircuitBreaker) transitionToOpen() {
	oldState := State(cb.state.Swap(int32(StateOpen)))
	if oldState != StateOpen {
		cb.lastStateChange.Store(cb.clock.Now())
		if cb.onStateChange != nil {
			cb.onStateChange(oldState, StateOpen)
		}
		if cb.onOpen != nil {
			cb.onOpen(cb.GetStats())
		}
	}
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	oldState := State(cb.state.Swap(int32(StateHalfOpen)))
	if oldState != StateHalfOpen {
		cb.lastStateChange.Store(cb.clock.Now())
		cb.halfOpenAttempts.Store(0)
		cb.halfOpenFailures.Store(0)
		if cb.onStateChange != nil {
			cb.onStateChange(oldState, StateHalfOpen)
		}
	}
}

func (cb *CircuitBreaker) transitionToClosed() {
	oldState := State(cb.state.Swap(int32(StateClosed)))
	if oldState != StateClosed {
		cb.lastStateChange.Store(cb.clock.Now())
		cb.requests.Store(0)
		cb.failures.Store(0)
		cb.successes.Store(0)
		cb.consecutiveFailures.Store(0)
		if cb.onStateChange != nil {
			cb.onStateChange(oldState, StateClosed)
		}
	}
}

func (cb *CircuitBreaker) evaluateHalfOpenResults() {
	if cb.halfOpenFailures.Load() == 0 {
		cb.transitionToClosed()
	} else {
		cb.transitionToOpen()
	}
}

// GetStats returns a snapshot of the circuit breaker's counters.
func (cb *CircuitBreaker) GetStats() CircuitStats {
	return CircuitStats{
		Requests:            cb.requests.Load(),
		Failures:            cb.failures.Load(),
		Successes:           cb.successes.Load(),
		ConsecutiveFailures: cb.consecutiveFailures.Load(),
		LastFailureTime:     cb.lastFailureTime.Load(),
		State:               State(cb.state.Load()),
	}
}

// GetState returns the circuit's current state.
func (cb *CircuitBreaker) GetState() State {
	return State(cb.state.Load())
}
