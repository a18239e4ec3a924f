package fluxgraph

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

func oneFieldSumSpec(t *testing.T) *WindowSpec {
	t.Helper()
	spec, err := NewSlidingWindows([]string{"1h"}, "10m")
	require.NoError(t, err)
	return spec
}

func TestAggregatorOperator_EveryEventPolicy(t *testing.T) {
	spec := oneFieldSumSpec(t)
	agg, err := NewFieldAggregator("n", "col1", []string{"sum"}, spec)
	require.NoError(t, err)

	op, err := NewAggregatorOperator("agg", []*FieldAggregator{agg}, EveryEventPolicy(), All, clockz.NewFakeClock())
	require.NoError(t, err)

	in := make(chan Message[Event], 8)
	out := op.Process(context.Background(), func(error) {}, in)

	send := func(col1 float64, tMillis int64) Event {
		body := MapVariant(map[string]Variant{"col1": FloatVariant(col1)})
		return NewEvent(body, "a", tMillis)
	}

	in <- Item(send(1, 0))
	in <- Item(send(2, 100))
	in <- Item(send(3, 200))
	in <- Terminator[Event]()
	close(in)

	var sums []float64
	for msg := range out {
		if msg.Sentinel {
			continue
		}
		v, ok := msg.Value.Body.Get("n_sum_1h")
		require.True(t, ok)
		f, err := v.Float()
		require.NoError(t, err)
		sums = append(sums, f)
	}
	require.Equal(t, []float64{1, 3, 6}, sums)
}

func TestAggregatorOperator_AfterMaxEventPolicy(t *testing.T) {
	spec := oneFieldSumSpec(t)
	agg, err := NewFieldAggregator("n", "col1", []string{"sum"}, spec)
	require.NoError(t, err)

	op, err := NewAggregatorOperator("agg", []*FieldAggregator{agg}, AfterMaxEventPolicy(2), All, clockz.NewFakeClock())
	require.NoError(t, err)

	in := make(chan Message[Event], 8)
	out := op.Process(context.Background(), func(error) {}, in)

	send := func(col1 float64, tMillis int64) Event {
		body := MapVariant(map[string]Variant{"col1": FloatVariant(col1)})
		return NewEvent(body, "a", tMillis)
	}

	in <- Item(send(1, 0))
	in <- Item(send(1, 100))
	in <- Item(send(1, 200))
	in <- Item(send(1, 300))
	in <- Terminator[Event]()
	close(in)

	var sums []float64
	for msg := range out {
		if msg.Sentinel {
			continue
		}
		v, _ := msg.Value.Body.Get("n_sum_1h")
		f, _ := v.Float()
		sums = append(sums, f)
	}
	require.Equal(t, []float64{2, 4}, sums)
}

func TestAggregatorOperator_FilteredAggregation(t *testing.T) {
	spec := oneFieldSumSpec(t)
	agg, err := NewFieldAggregator("n", "col1", []string{"sum"}, spec)
	require.NoError(t, err)
	agg = agg.WithFilter(func(body Variant) bool {
		v, ok := body.Get("keep")
		return ok && v.Bool()
	})

	op, err := NewAggregatorOperator("agg", []*FieldAggregator{agg}, EveryEventPolicy(), All, clockz.NewFakeClock())
	require.NoError(t, err)

	in := make(chan Message[Event], 4)
	out := op.Process(context.Background(), func(error) {}, in)

	pass := NewEvent(MapVariant(map[string]Variant{"col1": FloatVariant(5), "keep": BoolVariant(true)}), "a", 0)
	drop := NewEvent(MapVariant(map[string]Variant{"col1": FloatVariant(100), "keep": BoolVariant(false)}), "a", 100)

	in <- Item(pass)
	in <- Item(drop)
	in <- Terminator[Event]()
	close(in)

	var sums []float64
	for msg := range out {
		if msg.Sentinel {
			continue
		}
		v, ok := msg.Value.Body.Get("n_sum_1h")
		if ok {
			f, _ := v.Float()
			sums = append(sums, f)
		}
	}
	// the filtered-out event still passes through (aggregation skipped), but
	// its feature snapshot must not reflect the dropped value.
	for _, s := range sums {
		require.Equal(t, 5.0, s)
	}
}

func TestNewAggregatorOperator_RejectsMismatchedPeriodsForAfterPeriod(t *testing.T) {
	spec1, err := NewSlidingWindows([]string{"1h"}, "10m")
	require.NoError(t, err)
	spec2, err := NewSlidingWindows([]string{"1h"}, "5m")
	require.NoError(t, err)
	agg1, err := NewFieldAggregator("a", "col1", []string{"sum"}, spec1)
	require.NoError(t, err)
	agg2, err := NewFieldAggregator("b", "col2", []string{"sum"}, spec2)
	require.NoError(t, err)

	_, err = NewAggregatorOperator("agg", []*FieldAggregator{agg1, agg2}, AfterPeriodPolicy(0), All, clockz.NewFakeClock())
	require.Error(t, err)
	fe := err.(*FlowError)
	require.Equal(t, KindUnsupportedEmissionPolicy, fe.Kind)
}

func TestNewAggregatorOperator_RequiresAtLeastOneAggregator(t *testing.T) {
	_, err := NewAggregatorOperator("agg", nil, EveryEventPolicy(), All, clockz.NewFakeClock())
	require.Error(t, err)
}

// TestAggregatorOperator_LogsLateEventWithoutFailing verifies a LateCount
// drop is surfaced as a Debug log line through the operator's logger, and
// that it is non-fatal: the operator keeps running and terminates normally
// rather than failing, per the KindLateEvent "always recoverable" contract.
func TestAggregatorOperator_LogsLateEventWithoutFailing(t *testing.T) {
	spec := oneFieldSumSpec(t).WithLatePolicy(LateCount)
	agg, err := NewFieldAggregator("n", "col1", []string{"sum"}, spec)
	require.NoError(t, err)

	op, err := NewAggregatorOperator("agg", []*FieldAggregator{agg}, EveryEventPolicy(), All, clockz.NewFakeClock())
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	op.WithLogger(&logger)

	in := make(chan Message[Event], 4)
	out := op.Process(context.Background(), func(error) {}, in)

	send := func(col1 float64, tMillis int64) Event {
		body := MapVariant(map[string]Variant{"col1": FloatVariant(col1)})
		return NewEvent(body, "a", tMillis)
	}

	// Seed the ring far in the future, then send a hopelessly late event.
	farFuture := spec.Period * int64(spec.TotalBuckets) * 100
	in <- Item(send(1, farFuture))
	in <- Item(send(1, 0))
	in <- Terminator[Event]()
	close(in)

	for range out {
	}
	require.Contains(t, buf.String(), "late event dropped")
	require.Equal(t, StateTerminated, op.State())
}
