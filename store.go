package fluxgraph

import "sort"

// AggregateStore maps key to StoreElement, creating elements lazily on
// first use. It is owned and touched exclusively by its aggregator
// operator's single goroutine, so no internal locking is required (see the
// concurrency model: per-operator state is never shared across tasks).
type AggregateStore struct {
	aggregators []*FieldAggregator
	elements    map[string]*StoreElement
	emitted     map[string]map[string]int64 // key -> column -> last-emitted version, for Incremental emission
}

// NewAggregateStore builds an empty store bound to a fixed set of FieldAggregators.
func NewAggregateStore(aggregators []*FieldAggregator) *AggregateStore {
	return &AggregateStore{
		aggregators: aggregators,
		elements:    map[string]*StoreElement{},
		emitted:     map[string]map[string]int64{},
	}
}

// Aggregate dispatches one event into the element for key, creating it
// (with base_time = t) on first observation. The returned count is how many
// of the element's raw columns counted t as a late event under LateCount
// policy (0 under LateDrop/LateReopen or when nothing was late).
func (s *AggregateStore) Aggregate(key string, body Variant, t int64) (lateCount int, err error) {
	el, ok := s.elements[key]
	if !ok {
		el = NewStoreElement(key, t, s.aggregators)
		s.elements[key] = el
	}
	return el.Aggregate(body, t)
}

// FeaturesAt returns the full feature map for key at time t, or false if
// the key has never been observed.
func (s *AggregateStore) FeaturesAt(key string, t int64) (map[string]FeatureValue, bool) {
	el, ok := s.elements[key]
	if !ok {
		return nil, false
	}
	return el.FeaturesAt(t), true
}

// FeaturesAtIncremental returns only the feature map entries whose backing
// column advanced since this key's last Incremental emission, and advances
// the stored watermark. A virtual column's output is included whenever any
// of its raw dependencies changed.
func (s *AggregateStore) FeaturesAtIncremental(key string, t int64) (map[string]FeatureValue, bool) {
	el, ok := s.elements[key]
	if !ok {
		return nil, false
	}
	since := s.emitted[key]
	if since == nil {
		since = map[string]int64{}
	}
	changed := el.changedColumns(since)

	out := map[string]FeatureValue{}
	for _, agg := range el.aggregators {
		rawChanged := false
		for _, k := range agg.RawKinds {
			col := agg.Name + "_" + k.String()
			if changed[col] {
				rawChanged = true
			}
		}
		if !rawChanged {
			continue
		}
		full := map[string]FeatureValue{}
		for _, k := range agg.RawKinds {
			colKey := rawColumnKey{agg.Name, k}
			c := el.rawColumns[colKey]
			vals := c.FeaturesAt(t)
			for wi, w := range agg.Spec.WindowTokens {
				full[agg.Name+"_"+k.String()+"_"+w] = featureFromAggValue(vals[wi])
			}
		}
		for _, vk := range agg.VirtualKinds {
			vc := el.virtualColumns[agg.Name+"_"+vk]
			vals := vc.FeaturesAt(t)
			for wi, w := range agg.Spec.WindowTokens {
				full[agg.Name+"_"+vk+"_"+w] = vals[wi]
			}
		}
		for k, v := range full {
			out[k] = v
		}
	}

	next := make(map[string]int64, len(el.columnVersion))
	for col, v := range el.columnVersion {
		next[col] = v
	}
	s.emitted[key] = next

	return out, true
}

// Keys returns every key observed so far, sorted, so the order is stable
// between mutations.
func (s *AggregateStore) Keys() []string {
	keys := make([]string, 0, len(s.elements))
	for k := range s.elements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
