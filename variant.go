package fluxgraph

import "fmt"

// VariantKind tags the dynamic type carried by a Variant.
type VariantKind int

const (
	KindNull VariantKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindMap
	KindList
)

// Variant is a tagged union standing in for the dynamically typed event
// bodies producers emit. Aggregators read a single Variant through a field
// extractor and coerce it to float64 for numeric aggregate kinds.
type Variant struct {
	kind VariantKind
	i    int64
	f    float64
	s    string
	b    bool
	m    map[string]Variant
	l    []Variant
}

// NullVariant is the zero Variant.
var NullVariant = Variant{kind: KindNull}

func IntVariant(v int64) Variant              { return Variant{kind: KindInt, i: v} }
func FloatVariant(v float64) Variant          { return Variant{kind: KindFloat, f: v} }
func StringVariant(v string) Variant          { return Variant{kind: KindString, s: v} }
func BoolVariant(v bool) Variant              { return Variant{kind: KindBool, b: v} }
func MapVariant(v map[string]Variant) Variant { return Variant{kind: KindMap, m: v} }
func ListVariant(v []Variant) Variant         { return Variant{kind: KindList, l: v} }

func (v Variant) Kind() VariantKind { return v.kind }
func (v Variant) IsNull() bool      { return v.kind == KindNull }

// Float coerces the Variant to a float64 for numeric aggregation. Strings
// and bools are not coerced; only Int and Float succeed.
func (v Variant) Float() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	default:
		return 0, fmt.Errorf("variant of kind %d is not numeric", v.kind)
	}
}

func (v Variant) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	case KindList:
		return fmt.Sprintf("%v", v.l)
	default:
		return "<unknown>"
	}
}

// Bool returns the boolean value; non-bool variants return false.
func (v Variant) Bool() bool {
	return v.kind == KindBool && v.b
}

// Map returns the underlying map, or nil if this Variant is not a map.
func (v Variant) Map() map[string]Variant {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// List returns the underlying list, or nil if this Variant is not a list.
func (v Variant) List() []Variant {
	if v.kind != KindList {
		return nil
	}
	return v.l
}

// Get looks up a key in a map Variant. Returns NullVariant, false if this
// Variant is not a map or the key is absent.
func (v Variant) Get(key string) (Variant, bool) {
	if v.kind != KindMap {
		return NullVariant, false
	}
	val, ok := v.m[key]
	return val, ok
}

// WithSet returns a copy of a map Variant with key set to value. Bodies are
// immutable once emitted, so augmentation always produces a new Variant.
func (v Variant) WithSet(key string, value Variant) Variant {
	next := make(map[string]Variant, len(v.m)+1)
	for k, val := range v.m {
		next[k] = val
	}
	next[key] = value
	return MapVariant(next)
}
