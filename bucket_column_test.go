package fluxgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func oneHourTenMinSpec(t *testing.T) *WindowSpec {
	t.Helper()
	spec, err := NewSlidingWindows([]string{"1h"}, "10m")
	require.NoError(t, err)
	require.Equal(t, int64(600000), spec.Period)
	require.Equal(t, 6, spec.TotalBuckets)
	return spec
}

func TestBucketColumn_SumEqualsSumOfSlots(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	col := NewBucketColumn(AggSum, spec, 0, nil)

	for i := int64(0); i < 6; i++ {
		col.Aggregate(i*spec.Period, 1)
	}
	features := col.FeaturesAt(5 * spec.Period)
	require.Len(t, features, 1)
	require.Equal(t, 6.0, features[0].Value)
}

func TestBucketColumn_AdvanceDropsOldestWithoutLeakage(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	col := NewBucketColumn(AggSum, spec, 0, nil)

	col.Aggregate(0, 100)
	for i := int64(1); i < 6; i++ {
		col.Aggregate(i*spec.Period, 1)
	}
	require.Equal(t, int64(0), col.FirstBucketStart())

	// This event lands one period past the ring's last bucket and forces a
	// one-slot advance, which must drop the t=0 slot (value 100) entirely.
	col.Aggregate(6*spec.Period, 1)
	require.Equal(t, spec.Period, col.FirstBucketStart())

	features := col.FeaturesAt(6 * spec.Period)
	require.Equal(t, 6.0, features[0].Value) // 5 old slots (value 1 each) + the new one, no 100 leaking in
}

func TestBucketColumn_ReinitOnFarFutureEvent(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	col := NewBucketColumn(AggSum, spec, 0, nil)
	col.Aggregate(0, 100)

	farFuture := 100 * spec.Period
	col.Aggregate(farFuture, 7)

	features := col.FeaturesAt(farFuture)
	require.Equal(t, 7.0, features[0].Value) // the old history is fully gone, not merely shifted
}

func TestBucketColumn_LateDropPolicy(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	col := NewBucketColumn(AggSum, spec, 10*spec.Period, nil)

	col.Aggregate(0, 999) // long before the ring's first bucket
	require.Equal(t, int64(0), col.LateCount())

	features := col.FeaturesAt(10 * spec.Period)
	require.Equal(t, 0.0, features[0].Value)
}

func TestBucketColumn_LateCountPolicy(t *testing.T) {
	spec := oneHourTenMinSpec(t).WithLatePolicy(LateCount)
	col := NewBucketColumn(AggSum, spec, 10*spec.Period, nil)

	col.Aggregate(0, 999)
	col.Aggregate(1, 999)
	require.Equal(t, int64(2), col.LateCount())
}

func TestBucketColumn_LateReopenPolicy(t *testing.T) {
	spec := oneHourTenMinSpec(t).WithLatePolicy(LateReopen)
	col := NewBucketColumn(AggSum, spec, 10*spec.Period, nil)

	col.Aggregate(10*spec.Period, 5)
	col.Aggregate(0, 42) // forces a reopen at t=0, discarding the t=10*period sample

	require.NotEqual(t, 10*spec.Period, col.FirstBucketStart())
	features := col.FeaturesAt(0)
	require.Equal(t, 42.0, features[0].Value)
}

func TestBucketColumn_IdempotentRead(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	col := NewBucketColumn(AggSum, spec, 0, nil)
	col.Aggregate(0, 3)
	col.Aggregate(spec.Period, 4)

	first := col.FeaturesAt(spec.Period)
	second := col.FeaturesAt(spec.Period)
	require.Equal(t, first[0].Value, second[0].Value)
}

func TestBucketColumn_MonotoneMinMax(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	minCol := NewBucketColumn(AggMin, spec, 0, nil)
	maxCol := NewBucketColumn(AggMax, spec, 0, nil)

	values := []float64{9, 3, 7, 1, 5, 2}
	for i, v := range values {
		minCol.Aggregate(int64(i)*spec.Period, v)
		maxCol.Aggregate(int64(i)*spec.Period, v)
	}

	minFeatures := minCol.FeaturesAt(5 * spec.Period)
	maxFeatures := maxCol.FeaturesAt(5 * spec.Period)
	require.Equal(t, 1.0, minFeatures[0].Value)
	require.Equal(t, 9.0, maxFeatures[0].Value)
}

func TestBucketColumn_Cap(t *testing.T) {
	spec := oneHourTenMinSpec(t)
	cap := 5.0
	col := NewBucketColumn(AggSum, spec, 0, &cap)

	col.Aggregate(0, 3)
	col.Aggregate(0, 10)

	features := col.FeaturesAt(0)
	require.Equal(t, 5.0, features[0].Value)
}
