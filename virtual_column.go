package fluxgraph

// virtualDependencies is the fixed dependency map from a virtual aggregate
// name to the raw AggKinds it is derived from. Every requested virtual
// aggregate transitively forces its raw dependencies into storage.
var virtualDependencies = map[string][]AggKind{
	"avg": {AggSum, AggCount},
}

// VirtualBucketColumn is a derived aggregate computed on demand from raw
// sibling columns in the same StoreElement. It owns no bucket storage of
// its own.
type VirtualBucketColumn struct {
	name   string
	deps   []*BucketColumn
	derive func(args []AggregationValue) FeatureValue
}

func newVirtualColumn(name string, deps []*BucketColumn) *VirtualBucketColumn {
	switch name {
	case "avg":
		return &VirtualBucketColumn{name: name, deps: deps, derive: deriveAvg}
	default:
		return &VirtualBucketColumn{name: name, deps: deps, derive: func([]AggregationValue) FeatureValue {
			return FeatureValue{Null: true}
		}}
	}
}

// deriveAvg implements avg = sum/count, with a documented zero-count
// sentinel of 0 (not null) to satisfy the "stay consistent" requirement on
// the avg-derivation testable property.
func deriveAvg(args []AggregationValue) FeatureValue {
	sum := args[0].Value
	count := args[1].Value
	if count == 0 {
		return FeatureValue{Value: 0}
	}
	return FeatureValue{Value: sum / count}
}

// FeaturesAt pulls the ordered per-window scalar list from each dependency
// raw column, then applies the derivation function window-by-window.
func (v *VirtualBucketColumn) FeaturesAt(t int64) []FeatureValue {
	depFeatures := make([][]AggregationValue, len(v.deps))
	for i, d := range v.deps {
		depFeatures[i] = d.FeaturesAt(t)
	}
	if len(depFeatures) == 0 {
		return nil
	}
	out := make([]FeatureValue, len(depFeatures[0]))
	args := make([]AggregationValue, len(v.deps))
	for w := range out {
		for i := range v.deps {
			args[i] = depFeatures[i][w]
		}
		out[w] = v.derive(args)
	}
	return out
}
