package fluxgraph

import "fmt"

// ErrorKind classifies a FlowError. Construction-time kinds are raised
// synchronously from builder/constructor calls; runtime kinds surface
// asynchronously, either swallowed locally (LateEvent) or captured by the
// controller and re-raised from AwaitTermination (OperatorFailure).
type ErrorKind int

const (
	// KindMalformedDuration: a duration string failed to parse.
	KindMalformedDuration ErrorKind = iota
	// KindWindowConfigInvalid: window/period divisibility or ordering violated.
	KindWindowConfigInvalid
	// KindInvalidKeySpec: a key extractor configuration is invalid.
	KindInvalidKeySpec
	// KindInvalidFieldSpec: a value extractor or coercion failed.
	KindInvalidFieldSpec
	// KindUnknownAggregate: an aggregate kind name is not recognized.
	KindUnknownAggregate
	// KindLateEvent: event timestamp fell outside the admissible bucket range.
	// Always recoverable; never surfaced via AwaitTermination.
	KindLateEvent
	// KindBackpressure: emit rejected by a non-blocking source queue.
	KindBackpressure
	// KindOperatorFailure: an operator callback panicked or returned an error.
	KindOperatorFailure
	// KindUnsupportedEmissionPolicy: an emission policy is not valid for this
	// aggregator configuration.
	KindUnsupportedEmissionPolicy
	// KindInvalidFlowSpec: the graph builder's shape assertions failed (no
	// source, no terminal reducer, malformed branch). Not named explicitly in
	// the aggregation engine's error taxonomy, but construction-time graph
	// shape validation is implied by the builder's stated assertions.
	KindInvalidFlowSpec
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedDuration:
		return "MalformedDuration"
	case KindWindowConfigInvalid:
		return "WindowConfigInvalid"
	case KindInvalidKeySpec:
		return "InvalidKeySpec"
	case KindInvalidFieldSpec:
		return "InvalidFieldSpec"
	case KindUnknownAggregate:
		return "UnknownAggregate"
	case KindLateEvent:
		return "LateEvent"
	case KindBackpressure:
		return "Backpressure"
	case KindOperatorFailure:
		return "OperatorFailure"
	case KindUnsupportedEmissionPolicy:
		return "UnsupportedEmissionPolicy"
	case KindInvalidFlowSpec:
		return "InvalidFlowSpec"
	default:
		return "Unknown"
	}
}

// FlowError is the single error type raised anywhere in the engine. It
// carries the operator that raised it (when applicable) so a failure can be
// traced back to its source without inspecting a type hierarchy.
type FlowError struct {
	Kind     ErrorKind
	Operator string
	Cause    error
}

// NewFlowError builds a FlowError with an optional wrapped cause.
func NewFlowError(kind ErrorKind, operator string, cause error) *FlowError {
	return &FlowError{Kind: kind, Operator: operator, Cause: cause}
}

func (e *FlowError) Error() string {
	if e.Operator == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
		return e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Operator, e.Cause)
	}
	return fmt.Sprintf("%s[%s]", e.Kind, e.Operator)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As chain through it.
func (e *FlowError) Unwrap() error {
	return e.Cause
}
