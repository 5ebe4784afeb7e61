// Package manifest models a distribution's repository manifest: a raw
// ordered key-value tree decoded from YAML, a deep merge over that tree,
// and the typed repository entries derived from it.
package manifest

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/rkent/distroclone/pkg/errors"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindMapping Kind = iota
	KindSequence
	KindScalar
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Value is a tagged-variant representation of decoded YAML data.
// Mappings preserve key insertion order, which determines processing and
// display order throughout a reconciliation run.
type Value struct {
	kind    Kind
	keys    []string
	mapping map[string]*Value
	seq     []*Value
	scalar  any
}

// NewMapping returns an empty ordered mapping value.
func NewMapping() *Value {
	return &Value{kind: KindMapping, mapping: make(map[string]*Value)}
}

// NewSequence returns a sequence value holding the given elements.
func NewSequence(elems ...*Value) *Value {
	return &Value{kind: KindSequence, seq: elems}
}

// NewScalar returns a scalar value wrapping v.
func NewScalar(v any) *Value {
	return &Value{kind: KindScalar, scalar: v}
}

// FromYAML decodes data into a Value, preserving mapping key order.
func FromYAML(data []byte) (*Value, error) {
	var raw any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return fromAny(raw), nil
}

// fromAny converts a decoded YAML value into the variant representation.
func fromAny(raw any) *Value {
	switch v := raw.(type) {
	case yaml.MapSlice:
		m := NewMapping()
		for _, item := range v {
			m.Set(fmt.Sprint(item.Key), fromAny(item.Value))
		}
		return m
	case map[string]any:
		// Callers that hand-build trees use plain maps; order follows
		// yaml marshal ordering in that case.
		m := NewMapping()
		for _, item := range sortedKeys(v) {
			m.Set(item, fromAny(v[item]))
		}
		return m
	case []any:
		elems := make([]*Value, 0, len(v))
		for _, e := range v {
			elems = append(elems, fromAny(e))
		}
		return NewSequence(elems...)
	default:
		return NewScalar(v)
	}
}

// Kind returns the variant kind.
func (v *Value) Kind() Kind {
	return v.kind
}

// Keys returns the mapping keys in insertion order.
// Returns nil for non-mapping values.
func (v *Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the mapping value for key.
func (v *Value) Get(key string) (*Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	val, ok := v.mapping[key]
	return val, ok
}

// Set inserts or replaces the mapping value for key. New keys are
// appended, keeping insertion order stable.
func (v *Value) Set(key string, val *Value) {
	if v.kind != KindMapping {
		return
	}
	if _, ok := v.mapping[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.mapping[key] = val
}

// Len returns the number of mapping keys or sequence elements.
func (v *Value) Len() int {
	switch v.kind {
	case KindMapping:
		return len(v.keys)
	case KindSequence:
		return len(v.seq)
	default:
		return 0
	}
}

// Sequence returns the sequence elements, or nil for other kinds.
func (v *Value) Sequence() []*Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Scalar returns the wrapped scalar, or nil for other kinds.
func (v *Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// StringAt returns the scalar under key rendered as a string, or ""
// when the key is absent or not a scalar.
func (v *Value) StringAt(key string) string {
	child, ok := v.Get(key)
	if !ok || child.kind != KindScalar || child.scalar == nil {
		return ""
	}
	return fmt.Sprint(child.scalar)
}

// Interface converts the value back into plain Go data: map[string]any
// for mappings, []any for sequences, the wrapped value for scalars.
// Mapping key order is not represented in the result.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindMapping:
		out := make(map[string]any, len(v.keys))
		for _, key := range v.keys {
			out[key] = v.mapping[key].Interface()
		}
		return out
	case KindSequence:
		out := make([]any, 0, len(v.seq))
		for _, e := range v.seq {
			out = append(out, e.Interface())
		}
		return out
	default:
		return v.scalar
	}
}

// String renders a scalar as text; mappings and sequences render via
// their plain-Go conversion.
func (v *Value) String() string {
	if v.kind == KindScalar {
		return fmt.Sprint(v.scalar)
	}
	return fmt.Sprint(v.Interface())
}

// sameType reports whether two values hold the same concrete type:
// matching kinds, and for scalars a matching dynamic Go type.
func (v *Value) sameType(o *Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindScalar {
		return reflect.TypeOf(v.scalar) == reflect.TypeOf(o.scalar)
	}
	return true
}

// Mapping asserts that v is a mapping, for callers that require one.
func (v *Value) Mapping() (*Value, error) {
	if v == nil {
		return nil, fmt.Errorf("expected a mapping, got nothing: %w", errors.ErrInvalidInput)
	}
	if v.kind != KindMapping {
		return nil, fmt.Errorf("expected a mapping, got %s: %w", v.kind, errors.ErrInvalidInput)
	}
	return v, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion order is unknowable for a Go map; sort for determinism.
	sort.Strings(keys)
	return keys
}
