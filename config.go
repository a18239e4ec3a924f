package fluxgraph

// FieldAggregatorConfig is the YAML-decodable description of one
// FieldAggregator, used by cmd/fluxgraphctl to build a flow from a
// configuration document instead of Go code.
type FieldAggregatorConfig struct {
	Name       string   `yaml:"name"`
	Field      string   `yaml:"field"`
	Aggregates []string `yaml:"aggregates"`
	Window     WindowConfig `yaml:"window"`
	MaxValue   *float64 `yaml:"max_value,omitempty"`
}

// WindowConfig is the YAML-decodable description of a WindowSpec.
type WindowConfig struct {
	Kind    string   `yaml:"kind"` // "sliding" or "fixed"
	Windows []string `yaml:"windows"`
	Period  string   `yaml:"period,omitempty"`
}

// EmissionConfig is the YAML-decodable description of an EmissionPolicy.
type EmissionConfig struct {
	Policy string `yaml:"policy"` // every_event, after_max_event, after_period, after_window, after_delay
	N      int    `yaml:"n,omitempty"`
	Delay  string `yaml:"delay,omitempty"`
	Type   string `yaml:"type,omitempty"` // all, incremental
}

// FlowConfig is the top-level YAML document describing one aggregator flow.
type FlowConfig struct {
	Name        string                  `yaml:"name"`
	Aggregators []FieldAggregatorConfig `yaml:"aggregators"`
	Emission    EmissionConfig          `yaml:"emission"`
}

// BuildWindowSpec constructs a WindowSpec from its configuration.
func (c WindowConfig) BuildWindowSpec() (*WindowSpec, error) {
	switch c.Kind {
	case "", "sliding":
		return NewSlidingWindows(c.Windows, c.Period)
	case "fixed":
		return NewFixedWindows(c.Windows)
	default:
		return nil, NewFlowError(KindWindowConfigInvalid, "", flowErrString("unknown window kind: "+c.Kind))
	}
}

// BuildFieldAggregator constructs a FieldAggregator from its configuration.
func (c FieldAggregatorConfig) BuildFieldAggregator() (*FieldAggregator, error) {
	spec, err := c.Window.BuildWindowSpec()
	if err != nil {
		return nil, err
	}
	agg, err := NewFieldAggregator(c.Name, c.Field, c.Aggregates, spec)
	if err != nil {
		return nil, err
	}
	if c.MaxValue != nil {
		agg.WithMaxValue(*c.MaxValue)
	}
	return agg, nil
}

// BuildEmissionPolicy constructs an EmissionPolicy and EmissionType from
// configuration, defaulting to EveryEvent/All when unset.
func (c EmissionConfig) BuildEmissionPolicy() (EmissionPolicy, EmissionType, error) {
	emissionType := All
	if c.Type == "incremental" {
		emissionType = Incremental
	}

	var delayMillis int64
	if c.Delay != "" {
		ms, err := ParseDuration(c.Delay)
		if err != nil {
			return EmissionPolicy{}, All, err
		}
		delayMillis = ms
	}

	switch c.Policy {
	case "", "every_event":
		return EveryEventPolicy(), emissionType, nil
	case "after_max_event":
		return AfterMaxEventPolicy(c.N), emissionType, nil
	case "after_period":
		return AfterPeriodPolicy(delayMillis), emissionType, nil
	case "after_window":
		return AfterWindowPolicy(delayMillis), emissionType, nil
	case "after_delay":
		return AfterDelayPolicy(delayMillis), emissionType, nil
	default:
		return EmissionPolicy{}, All, NewFlowError(KindUnsupportedEmissionPolicy, "", flowErrString("unknown emission policy: "+c.Policy))
	}
}

// BuildAggregators builds every configured FieldAggregator in order.
func (c FlowConfig) BuildAggregators() ([]*FieldAggregator, error) {
	aggs := make([]*FieldAggregator, 0, len(c.Aggregators))
	for _, ac := range c.Aggregators {
		agg, err := ac.BuildFieldAggregator()
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}
