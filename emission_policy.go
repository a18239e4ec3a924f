package fluxgraph

// EmissionKind selects when the aggregator operator pushes features
// downstream.
type EmissionKind int

const (
	// EveryEvent emits for the just-updated key on every inbound event.
	EveryEvent EmissionKind = iota
	// AfterMaxEvent emits once every N inbound events for a key; the
	// per-key counter resets on emit.
	AfterMaxEvent
	// AfterPeriod emits for every key in the store at each period
	// boundary, plus a configurable delay.
	AfterPeriod
	// AfterWindow is identical to AfterPeriod but aligned to the smallest
	// window length instead of the period.
	AfterWindow
	// AfterDelay emits with the same per-event cadence as EveryEvent, but
	// queries the store at (event time - delay) instead of the event's own
	// timestamp.
	AfterDelay
)

// EmissionType controls how much of the feature map an emission carries.
type EmissionType int

const (
	// All returns the full feature map on every emission.
	All EmissionType = iota
	// Incremental returns only the columns whose running aggregate changed
	// since this key's last emission.
	Incremental
)

// EmissionPolicy configures the aggregator operator's emission cadence.
type EmissionPolicy struct {
	Kind  EmissionKind
	N     int   // AfterMaxEvent
	Delay int64 // milliseconds; AfterPeriod, AfterWindow, AfterDelay
}

// EveryEventPolicy emits on every inbound event.
func EveryEventPolicy() EmissionPolicy { return EmissionPolicy{Kind: EveryEvent} }

// AfterMaxEventPolicy emits once every n events per key. n is clamped to 1.
func AfterMaxEventPolicy(n int) EmissionPolicy {
	if n < 1 {
		n = 1
	}
	return EmissionPolicy{Kind: AfterMaxEvent, N: n}
}

// AfterPeriodPolicy emits for every key at each bucket-period boundary.
func AfterPeriodPolicy(delayMillis int64) EmissionPolicy {
	return EmissionPolicy{Kind: AfterPeriod, Delay: delayMillis}
}

// AfterWindowPolicy emits for every key at each smallest-window boundary.
func AfterWindowPolicy(delayMillis int64) EmissionPolicy {
	return EmissionPolicy{Kind: AfterWindow, Delay: delayMillis}
}

// AfterDelayPolicy emits on every event, offset by delayMillis.
func AfterDelayPolicy(delayMillis int64) EmissionPolicy {
	return EmissionPolicy{Kind: AfterDelay, Delay: delayMillis}
}
