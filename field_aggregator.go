package fluxgraph

import "sort"

// Extractor pulls a single Variant out of an event body, e.g. a field
// lookup or a user-supplied function over the whole body.
type Extractor func(body Variant) (Variant, error)

// FieldExtractor returns an Extractor that looks up field in a map-shaped
// body, failing with KindInvalidFieldSpec if it is absent.
func FieldExtractor(field string) Extractor {
	return func(body Variant) (Variant, error) {
		v, ok := body.Get(field)
		if !ok {
			return NullVariant, NewFlowError(KindInvalidFieldSpec, "", flowErrString("field not found: "+field))
		}
		return v, nil
	}
}

// FieldAggregator declares one named aggregation: what to extract, which
// raw and virtual aggregate kinds to maintain, over which window spec,
// gated by an optional filter and capped by an optional saturation value.
type FieldAggregator struct {
	Name         string
	Extractor    Extractor
	RawKinds     []AggKind
	VirtualKinds []string
	Spec         *WindowSpec
	Filter       func(body Variant) bool
	MaxValue     *float64
}

// NewFieldAggregator builds a FieldAggregator that extracts field by name.
func NewFieldAggregator(name, field string, aggregates []string, spec *WindowSpec) (*FieldAggregator, error) {
	return NewFieldAggregatorFunc(name, FieldExtractor(field), aggregates, spec)
}

// NewFieldAggregatorFunc builds a FieldAggregator with a custom extractor.
func NewFieldAggregatorFunc(name string, extractor Extractor, aggregates []string, spec *WindowSpec) (*FieldAggregator, error) {
	if name == "" {
		return nil, NewFlowError(KindInvalidFieldSpec, "", flowErrString("field aggregator name required"))
	}
	if spec == nil {
		return nil, NewFlowError(KindWindowConfigInvalid, name, flowErrString("window spec required"))
	}
	rawSet := map[AggKind]bool{}
	var virtualKinds []string
	for _, a := range aggregates {
		if deps, ok := virtualDependencies[a]; ok {
			virtualKinds = append(virtualKinds, a)
			for _, d := range deps {
				rawSet[d] = true
			}
			continue
		}
		k, err := ParseAggKind(a)
		if err != nil {
			return nil, NewFlowError(KindUnknownAggregate, name, err)
		}
		rawSet[k] = true
	}
	raw := make([]AggKind, 0, len(rawSet))
	for k := range rawSet {
		raw = append(raw, k)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })
	return &FieldAggregator{
		Name:         name,
		Extractor:    extractor,
		RawKinds:     raw,
		VirtualKinds: virtualKinds,
		Spec:         spec,
	}, nil
}

// WithFilter attaches a per-event predicate: events for which it returns
// false are not dispatched into this aggregator's columns.
func (f *FieldAggregator) WithFilter(pred func(Variant) bool) *FieldAggregator {
	f.Filter = pred
	return f
}

// WithMaxValue attaches a saturation cap, applied uniformly to every raw
// kind this aggregator maintains (see Open Question 2).
func (f *FieldAggregator) WithMaxValue(cap float64) *FieldAggregator {
	f.MaxValue = &cap
	return f
}
