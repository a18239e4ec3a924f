package httpjoin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxgraph/fluxgraph"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

type scriptedClient struct {
	fail bool
}

func (c *scriptedClient) Request(context.Context, string, string, fluxgraph.Variant, map[string]string) (fluxgraph.Variant, error) {
	if c.fail {
		return fluxgraph.NullVariant, errors.New("scripted failure")
	}
	return fluxgraph.NullVariant, nil
}

func TestCircuitBreaker_OpensAfterThresholdBreached(t *testing.T) {
	clock := clockz.NewFakeClock()
	inner := &scriptedClient{fail: true}
	cb := NewCircuitBreaker(inner, clock).MinRequests(4).FailureThreshold(0.5)

	for i := 0; i < 4; i++ {
		_, err := cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
		require.Error(t, err)
	}
	require.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_RejectsWhileOpen(t *testing.T) {
	clock := clockz.NewFakeClock()
	inner := &scriptedClient{fail: true}
	cb := NewCircuitBreaker(inner, clock).MinRequests(2).FailureThreshold(0.5)

	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.Equal(t, StateOpen, cb.GetState())

	_, err := cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenRecoversOnSuccess(t *testing.T) {
	clock := clockz.NewFakeClock()
	inner := &scriptedClient{fail: true}
	cb := NewCircuitBreaker(inner, clock).
		MinRequests(2).
		FailureThreshold(0.5).
		RecoveryTimeout(10 * time.Second).
		HalfOpenRequests(1)

	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.Equal(t, StateOpen, cb.GetState())

	clock.Advance(20 * time.Second)
	inner.fail = false

	_, err := cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.NoError(t, err)
	require.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	clock := clockz.NewFakeClock()
	inner := &scriptedClient{fail: true}
	cb := NewCircuitBreaker(inner, clock).
		MinRequests(2).
		FailureThreshold(0.5).
		RecoveryTimeout(10 * time.Second).
		HalfOpenRequests(1)

	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.Equal(t, StateOpen, cb.GetState())

	clock.Advance(20 * time.Second)

	_, err := cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.Error(t, err)
	require.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	clock := clockz.NewFakeClock()
	inner := &scriptedClient{fail: true}
	var transitions []string
	cb := NewCircuitBreaker(inner, clock).
		MinRequests(2).
		FailureThreshold(0.5).
		OnStateChange(func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		})

	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	_, _ = cb.Request(context.Background(), "GET", "u", fluxgraph.NullVariant, nil)
	require.Contains(t, transitions, "closed->open")
}
