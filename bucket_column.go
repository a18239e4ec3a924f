package fluxgraph

// BucketColumn is a ring of AggregationValue slots for one (key, field,
// raw-kind) tuple, advancing as events arrive and supporting point-in-time
// feature extraction across the window spec's window lengths.
type BucketColumn struct {
	kind    AggKind
	spec    *WindowSpec
	cap     *float64
	buckets []AggregationValue // oldest first, newest at len-1

	firstBucketStart int64
	lastBucketStart  int64

	lateCount int64
}

// NewBucketColumn constructs a ring seeded from baseTime using the spec's
// alignment rule (identity for sliding, floor-to-period for fixed).
func NewBucketColumn(kind AggKind, spec *WindowSpec, baseTime int64, cap *float64) *BucketColumn {
	first := spec.firstBucketStartTime(baseTime)
	c := &BucketColumn{kind: kind, spec: spec, cap: cap}
	c.buckets = c.freshSlots(spec.TotalBuckets)
	c.firstBucketStart = first
	c.lastBucketStart = first + int64(spec.TotalBuckets-1)*spec.Period
	return c
}

func (c *BucketColumn) freshSlots(n int) []AggregationValue {
	slots := make([]AggregationValue, n)
	for i := range slots {
		v := NewAggregationValue(c.kind)
		if c.cap != nil {
			v = v.WithCap(*c.cap)
		}
		slots[i] = v
	}
	return slots
}

// index computes the bucket offset for timestamp t relative to the ring's
// current first_bucket_start_time.
func (c *BucketColumn) index(t int64) int {
	return int(floorDiv(t-c.firstBucketStart, c.spec.Period))
}

// Aggregate folds (t, value) into the ring, advancing it first if necessary.
// It reports late as true when t fell outside the ring's admissible range
// and LateCount policy counted (rather than silently dropped or reopened on)
// the event, so callers can surface a non-fatal KindLateEvent occurrence.
func (c *BucketColumn) Aggregate(t int64, value float64) (late bool) {
	if t < c.lastBucketStart+c.spec.Period {
		idx := c.index(t)
		if idx < 0 {
			switch c.spec.LatePolicy {
			case LateReopen:
				c.reinit(t)
				idx = len(c.buckets) - 1
			case LateCount:
				c.lateCount++
				return true
			default:
				return false
			}
		}
		if idx >= len(c.buckets) {
			idx = len(c.buckets) - 1
		}
		c.buckets[idx] = c.buckets[idx].Aggregate(float64(t), value)
		return false
	}

	desired := c.index(t)
	shift := desired - (len(c.buckets) - 1)
	if shift >= len(c.buckets) {
		c.reinit(t)
	} else {
		c.advance(shift)
	}
	idx := len(c.buckets) - 1
	c.buckets[idx] = c.buckets[idx].Aggregate(float64(t), value)
	return false
}

// advance drops the oldest shift slots and appends shift fresh defaults,
// sliding both start-times forward by shift*period.
func (c *BucketColumn) advance(shift int) {
	if shift <= 0 {
		return
	}
	n := len(c.buckets)
	next := make([]AggregationValue, n)
	copy(next, c.buckets[shift:])
	fresh := c.freshSlots(shift)
	copy(next[n-shift:], fresh)
	c.buckets = next
	c.firstBucketStart += int64(shift) * c.spec.Period
	c.lastBucketStart += int64(shift) * c.spec.Period
}

// reinit discards all history and reseats the ring so that t lands in the
// newest slot.
func (c *BucketColumn) reinit(t int64) {
	n := len(c.buckets)
	base := t - int64(n-1)*c.spec.Period
	first := c.spec.firstBucketStartTime(base)
	c.buckets = c.freshSlots(n)
	c.firstBucketStart = first
	c.lastBucketStart = first + int64(n-1)*c.spec.Period
}

// queryIndex resolves the bucket index used as the anchor for FeaturesAt.
// Fixed windows query against the bucket containing t-1: the bucket holding
// t itself, or, when t falls exactly on a bucket boundary, the bucket that
// ends there.
func (c *BucketColumn) queryIndex(t int64) int {
	qt := t
	if c.spec.Kind == WindowFixed {
		qt = ceilDiv(t, c.spec.Period)*c.spec.Period - 1
	}
	return c.index(qt)
}

func ceilDiv(a, b int64) int64 {
	return floorDiv(a+b-1, b)
}

// FeaturesAt returns one summary AggregationValue per window length in the
// spec's ascending window list, walking from the smallest to the largest
// window and reusing the running accumulator so that each bucket slot is
// touched at most once across the whole extraction.
func (c *BucketColumn) FeaturesAt(t int64) []AggregationValue {
	results := make([]AggregationValue, len(c.spec.Windows))
	currentIndex := c.queryIndex(t)

	if currentIndex < 0 {
		running := NewAggregationValue(summaryKind(c.kind))
		for i := range results {
			results[i] = running
		}
		return results
	}

	running := NewAggregationValue(summaryKind(c.kind))
	prevWindow := int64(0)
	for i, w := range c.spec.Windows {
		delta := int((w - prevWindow) / c.spec.Period)
		lo := currentIndex - delta + 1
		if lo < 0 {
			lo = 0
		}
		hi := currentIndex
		if hi >= len(c.buckets) {
			hi = len(c.buckets) - 1
		}
		for idx := lo; idx <= hi; idx++ {
			running = running.merge(c.buckets[idx])
		}
		results[i] = running
		currentIndex -= delta
		prevWindow = w
	}
	return results
}

// LateCount reports how many events were dropped as late under LateCount policy.
func (c *BucketColumn) LateCount() int64 { return c.lateCount }

// FirstBucketStart and LastBucketStart expose ring bounds for the bucket
// alignment invariant and diagnostics.
func (c *BucketColumn) FirstBucketStart() int64 { return c.firstBucketStart }
func (c *BucketColumn) LastBucketStart() int64  { return c.lastBucketStart }
func (c *BucketColumn) TotalBuckets() int       { return len(c.buckets) }
