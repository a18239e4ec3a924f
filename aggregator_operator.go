package fluxgraph

import (
	"context"
	"time"
)

// AugmentFunc merges a feature map into an original event body. The default
// implementation sets each "{name}_{aggregate}_{window}" key into the body,
// using NullVariant for first/last features that have never been observed.
type AugmentFunc func(original Variant, features map[string]FeatureValue) Variant

func defaultAugment(original Variant, features map[string]FeatureValue) Variant {
	out := original
	if out.Kind() != KindMap {
		out = MapVariant(map[string]Variant{})
	}
	for k, v := range features {
		if v.Null {
			out = out.WithSet(k, NullVariant)
		} else {
			out = out.WithSet(k, FloatVariant(v.Value))
		}
	}
	return out
}

// AggregatorOperator binds an AggregateStore and a set of FieldAggregators
// into an Operator[Event], consulting an EmissionPolicy after every update
// to decide whether (and what) to push downstream.
type AggregatorOperator struct {
	base
	aggregators  []*FieldAggregator
	store        *AggregateStore
	policy       EmissionPolicy
	emissionType EmissionType
	keyFn        func(Event) string
	augment      AugmentFunc
	clock        Clock

	tickerInterval int64 // ms; 0 when the policy has no background ticker
	perKeyCount    map[string]int
	lastBody       map[string]Variant
}

// NewAggregatorOperator validates the aggregator set against policy and
// builds the operator. AfterPeriod and AfterWindow require every
// FieldAggregator to share a common period or smallest window respectively
// (Open Question 4): a ticker keyed to one aggregator's window spec cannot
// serve a mix of differently-scaled aggregators correctly, so construction
// fails fast with KindUnsupportedEmissionPolicy rather than silently
// picking one aggregator's spec to drive every other's ticker.
func NewAggregatorOperator(name string, aggregators []*FieldAggregator, policy EmissionPolicy, emissionType EmissionType, clock Clock) (*AggregatorOperator, error) {
	if len(aggregators) == 0 {
		return nil, NewFlowError(KindInvalidFieldSpec, name, flowErrString("at least one field aggregator required"))
	}
	op := &AggregatorOperator{
		base:         newBase(name),
		aggregators:  aggregators,
		store:        NewAggregateStore(aggregators),
		policy:       policy,
		emissionType: emissionType,
		keyFn:        func(e Event) string { return e.Key },
		augment:      defaultAugment,
		clock:        clock,
		perKeyCount:  map[string]int{},
		lastBody:     map[string]Variant{},
	}

	switch policy.Kind {
	case AfterPeriod:
		p := aggregators[0].Spec.Period
		for _, a := range aggregators {
			if a.Spec.Period != p {
				return nil, NewFlowError(KindUnsupportedEmissionPolicy, name, flowErrString("AfterPeriod requires every field aggregator to share one period"))
			}
		}
		op.tickerInterval = p
	case AfterWindow:
		w := aggregators[0].Spec.Windows[0]
		for _, a := range aggregators {
			if a.Spec.Windows[0] != w {
				return nil, NewFlowError(KindUnsupportedEmissionPolicy, name, flowErrString("AfterWindow requires every field aggregator to share its smallest window"))
			}
		}
		op.tickerInterval = w
	}
	return op, nil
}

// WithKeyFunc overrides key resolution; the default reads Event.Key.
func (a *AggregatorOperator) WithKeyFunc(fn func(Event) string) *AggregatorOperator {
	a.keyFn = fn
	return a
}

// WithAugmentFunc overrides the default merge-into-body augmentation.
func (a *AggregatorOperator) WithAugmentFunc(fn AugmentFunc) *AggregatorOperator {
	a.augment = fn
	return a
}

func (a *AggregatorOperator) featuresFor(key string, t int64) (map[string]FeatureValue, bool) {
	if a.emissionType == Incremental {
		return a.store.FeaturesAtIncremental(key, t)
	}
	return a.store.FeaturesAt(key, t)
}

// Process runs the aggregator as a single cooperative loop that owns both
// inbound-event handling and any ticker-driven emission, so that
// aggregate-then-maybe-emit for a key is never interleaved with the
// ticker's own scan of that same key (the ordering guarantee in the
// concurrency model).
func (a *AggregatorOperator) Process(ctx context.Context, fail func(error), in <-chan Message[Event]) <-chan Message[Event] {
	out := make(chan Message[Event], InboundQueueSize)

	go func() {
		a.setState(StateRunning)
		defer close(out)

		var timer Timer
		var timerCh <-chan time.Time
		var boundary int64

		ensureTimer := func() {
			if a.tickerInterval <= 0 || timer != nil {
				return
			}
			now := a.clock.Now().UnixMilli()
			boundary = ceilDiv(now, a.tickerInterval) * a.tickerInterval
			wait := boundary - now + a.policy.Delay
			if wait < 0 {
				wait = 0
			}
			timer = a.clock.NewTimer(time.Duration(wait) * time.Millisecond)
			timerCh = timer.C()
		}

		emitKey := func(key string, queryTime int64, eventTime int64) {
			features, ok := a.featuresFor(key, queryTime)
			if !ok {
				return
			}
			body := a.lastBody[key]
			next := NewEvent(a.augment(body, features), key, eventTime)
			select {
			case out <- Item(next):
			case <-ctx.Done():
			}
		}

		emitAllKeys := func(t int64) {
			for _, k := range a.store.Keys() {
				emitKey(k, t, t)
			}
		}

		for {
			select {
			case <-ctx.Done():
				a.setState(StateFailed)
				return

			case <-timerCh:
				a.logger.Debug().Str("operator", a.name).Int64("boundary", boundary).Msg("ticker boundary reached")
				emitAllKeys(boundary)
				boundary += a.tickerInterval
				now := a.clock.Now().UnixMilli()
				wait := boundary - now + a.policy.Delay
				if wait < 0 {
					wait = 0
				}
				timer.Reset(time.Duration(wait) * time.Millisecond)

			case msg, ok := <-in:
				if !ok {
					a.setState(StateTerminated)
					return
				}
				if msg.Sentinel {
					a.setState(StateDraining)
					if timer != nil {
						timer.Stop()
					}
					switch a.policy.Kind {
					case AfterMaxEvent:
						now := a.clock.Now().UnixMilli()
						for key, count := range a.perKeyCount {
							if count > 0 {
								emitKey(key, now, now)
							}
						}
					case AfterPeriod, AfterWindow:
						emitAllKeys(a.clock.Now().UnixMilli())
					}
					select {
					case out <- Terminator[Event]():
					case <-ctx.Done():
					}
					a.setState(StateTerminated)
					return
				}

				ensureTimer()
				evt := msg.Value
				key := a.keyFn(evt)
				a.lastBody[key] = evt.Body

				lateCount, err := a.store.Aggregate(key, evt.Body, evt.Time)
				if err != nil {
					fail(err)
					a.setState(StateFailed)
					return
				}
				if lateCount > 0 {
					a.logger.Debug().
						Str("operator", a.name).
						Str("key", key).
						Int("lateColumns", lateCount).
						Err(NewFlowError(KindLateEvent, a.name, nil)).
						Msg("late event dropped")
				}

				switch a.policy.Kind {
				case EveryEvent:
					emitKey(key, evt.Time, evt.Time)
				case AfterMaxEvent:
					a.perKeyCount[key]++
					if a.perKeyCount[key] >= a.policy.N {
						a.perKeyCount[key] = 0
						emitKey(key, evt.Time, evt.Time)
					}
				case AfterDelay:
					emitKey(key, evt.Time-a.policy.Delay, evt.Time)
				case AfterPeriod, AfterWindow:
					// handled exclusively by the ticker
				}
			}
		}
	}()

	return out
}
