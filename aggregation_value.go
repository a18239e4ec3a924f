package fluxgraph

import "math"

// AggKind identifies a raw aggregate primitive. Virtual kinds (e.g. avg) are
// not AggKind values; they are derived separately by VirtualBucketColumn.
type AggKind int

const (
	AggSum AggKind = iota
	AggCount
	AggMin
	AggMax
	AggFirst
	AggLast
)

func (k AggKind) String() string {
	switch k {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggFirst:
		return "first"
	case AggLast:
		return "last"
	default:
		return "unknown"
	}
}

// ParseAggKind maps an aggregate name to its AggKind, or reports
// KindUnknownAggregate.
func ParseAggKind(name string) (AggKind, error) {
	switch name {
	case "sum":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "first":
		return AggFirst, nil
	case "last":
		return AggLast, nil
	default:
		return 0, NewFlowError(KindUnknownAggregate, "", flowErrString("unknown raw aggregate: "+name))
	}
}

// AggregationValue is a single slot holding a running numeric summary for
// one aggregate kind. first_time/last_time use +Inf/-Inf sentinels, not the
// datetime.max convention the Python source used for last_time: the source's
// `last` branch compares `time > last_time` against a "never observed"
// sentinel, and seeding that sentinel at +Inf makes the comparison
// unsatisfiable forever. Seeding it at -Inf instead is the fix recorded in
// the design notes (Open Question 3).
type AggregationValue struct {
	Kind      AggKind
	Value     float64
	FirstTime float64 // +Inf sentinel: never observed
	LastTime  float64 // -Inf sentinel: never observed
	HasCap    bool
	Cap       float64
}

// NewAggregationValue returns a default-initialised slot for kind.
func NewAggregationValue(kind AggKind) AggregationValue {
	v := AggregationValue{Kind: kind, FirstTime: math.Inf(1), LastTime: math.Inf(-1)}
	switch kind {
	case AggMin:
		v.Value = math.Inf(1)
	case AggMax:
		v.Value = math.Inf(-1)
	default:
		v.Value = 0
	}
	return v
}

// WithCap returns a copy of v with a saturation cap applied to all future
// assignments. The cap applies uniformly to every kind including count,
// preserving the reference implementation's (admittedly counterintuitive)
// behaviour; see Open Question 2.
func (v AggregationValue) WithCap(cap float64) AggregationValue {
	v.HasCap = true
	v.Cap = cap
	return v
}

// Aggregate folds (time, value) into the slot according to its Kind.
func (v AggregationValue) Aggregate(t float64, value float64) AggregationValue {
	switch v.Kind {
	case AggMin:
		if value < v.Value {
			v.Value = value
		}
	case AggMax:
		if value > v.Value {
			v.Value = value
		}
	case AggSum:
		v.Value += value
	case AggCount:
		v.Value++
	case AggLast:
		if t > v.LastTime {
			v.Value = value
			v.LastTime = t
		}
	case AggFirst:
		if t < v.FirstTime {
			v.Value = value
			v.FirstTime = t
		}
	default:
		if t > v.LastTime {
			v.LastTime = t
		}
		if t < v.FirstTime {
			v.FirstTime = t
		}
	}
	if v.HasCap && v.Value > v.Cap {
		v.Value = v.Cap
	}
	return v
}

// ValueAtTime returns the representative time and stored value: FirstTime
// for the first kind, LastTime for every other kind.
func (v AggregationValue) ValueAtTime() (float64, float64) {
	if v.Kind == AggFirst {
		return v.FirstTime, v.Value
	}
	return v.LastTime, v.Value
}

// Observed reports whether this slot has ever been assigned.
func (v AggregationValue) Observed() bool {
	switch v.Kind {
	case AggFirst:
		return !math.IsInf(v.FirstTime, 1)
	case AggLast:
		return !math.IsInf(v.LastTime, -1)
	default:
		return !math.IsInf(v.LastTime, -1) || !math.IsInf(v.FirstTime, 1)
	}
}

// merge folds other's contribution into v as part of a multi-slot summary
// pass (features_at's running accumulator). It treats v's own kind as the
// summary kind: count-as-sum per spec 4.3 ("count summarises as sum").
func (v AggregationValue) merge(other AggregationValue) AggregationValue {
	switch v.Kind {
	case AggMin:
		if other.Value < v.Value {
			v.Value = other.Value
		}
	case AggMax:
		if other.Value > v.Value {
			v.Value = other.Value
		}
	case AggSum, AggCount:
		v.Value += other.Value
	case AggLast:
		if other.LastTime > v.LastTime {
			v.Value = other.Value
			v.LastTime = other.LastTime
		}
	case AggFirst:
		if other.FirstTime < v.FirstTime {
			v.Value = other.Value
			v.FirstTime = other.FirstTime
		}
	}
	return v
}

// summaryKind returns the AggKind used when folding several slots of kind k
// into a running accumulator: count summarises as sum (spec 4.3).
func summaryKind(k AggKind) AggKind {
	if k == AggCount {
		return AggSum
	}
	return k
}
