package fluxgraph

type rawColumnKey struct {
	name string
	kind AggKind
}

// StoreElement holds every BucketColumn and VirtualBucketColumn for a
// single key. Raw columns are instantiated first so their addresses are
// stable before any virtual column captures a reference to them.
type StoreElement struct {
	key            string
	baseTime       int64
	aggregators    []*FieldAggregator
	rawColumns     map[rawColumnKey]*BucketColumn
	virtualColumns map[string]*VirtualBucketColumn
	columnVersion  map[string]int64
}

// NewStoreElement constructs the element for key, seeding every column's
// ring from baseTime, the timestamp of the first event observed for this key.
func NewStoreElement(key string, baseTime int64, aggregators []*FieldAggregator) *StoreElement {
	se := &StoreElement{
		key:            key,
		baseTime:       baseTime,
		aggregators:    aggregators,
		rawColumns:     map[rawColumnKey]*BucketColumn{},
		virtualColumns: map[string]*VirtualBucketColumn{},
		columnVersion:  map[string]int64{},
	}
	for _, agg := range aggregators {
		for _, k := range agg.RawKinds {
			se.rawColumns[rawColumnKey{agg.Name, k}] = NewBucketColumn(k, agg.Spec, baseTime, agg.MaxValue)
		}
	}
	for _, agg := range aggregators {
		for _, vk := range agg.VirtualKinds {
			deps := virtualDependencies[vk]
			depCols := make([]*BucketColumn, len(deps))
			for i, dk := range deps {
				depCols[i] = se.rawColumns[rawColumnKey{agg.Name, dk}]
			}
			se.virtualColumns[agg.Name+"_"+vk] = newVirtualColumn(vk, depCols)
		}
	}
	return se
}

// Aggregate dispatches one event body into every declared FieldAggregator
// whose filter passes, extracting its value and updating every raw column
// the aggregator maintains. It returns the number of raw columns that
// counted t as a late event under LateCount policy, for the caller to
// surface as a non-fatal KindLateEvent occurrence.
func (se *StoreElement) Aggregate(body Variant, t int64) (lateCount int, err error) {
	for _, agg := range se.aggregators {
		if agg.Filter != nil && !agg.Filter(body) {
			continue
		}
		raw, err := agg.Extractor(body)
		if err != nil {
			return lateCount, err
		}
		f, err := raw.Float()
		if err != nil {
			return lateCount, NewFlowError(KindInvalidFieldSpec, agg.Name, err)
		}
		for _, k := range agg.RawKinds {
			ck := rawColumnKey{agg.Name, k}
			if se.rawColumns[ck].Aggregate(t, f) {
				lateCount++
			}
			se.columnVersion[agg.Name+"_"+k.String()]++
		}
	}
	return lateCount, nil
}

// FeaturesAt returns the union of every column's feature map at time t,
// keyed "{name}_{aggregate}_{window}".
func (se *StoreElement) FeaturesAt(t int64) map[string]FeatureValue {
	out := map[string]FeatureValue{}
	for _, agg := range se.aggregators {
		for _, k := range agg.RawKinds {
			col := se.rawColumns[rawColumnKey{agg.Name, k}]
			vals := col.FeaturesAt(t)
			for wi, w := range agg.Spec.WindowTokens {
				out[agg.Name+"_"+k.String()+"_"+w] = featureFromAggValue(vals[wi])
			}
		}
		for _, vk := range agg.VirtualKinds {
			vc := se.virtualColumns[agg.Name+"_"+vk]
			vals := vc.FeaturesAt(t)
			for wi, w := range agg.Spec.WindowTokens {
				out[agg.Name+"_"+vk+"_"+w] = vals[wi]
			}
		}
	}
	return out
}

// changedColumns returns the set of "{name}_{aggregate}" keys whose version
// counter has advanced past sinceVersion, for Incremental emission.
func (se *StoreElement) changedColumns(since map[string]int64) map[string]bool {
	changed := map[string]bool{}
	for col, v := range se.columnVersion {
		if v > since[col] {
			changed[col] = true
		}
	}
	return changed
}
