// Package qdata models the loosely typed question payload as a closed set of value
// types, and walks it without reflection.
package qdata

import (
	"sort"
	"strings"
)

// Value is one node of a payload: String, Number, Bool, Null, Sequence or Mapping.
type Value interface {
	isValue()
}

type (
	String string
	// Number keeps the decimal text it was decoded from, so ids and scores round-trip exactly.
	Number   string
	Bool     bool
	Null     struct{}
	Sequence []Value
	Mapping  map[string]Value
)

func (String) isValue()   {}
func (Number) isValue()   {}
func (Bool) isValue()     {}
func (Null) isValue()     {}
func (Sequence) isValue() {}
func (Mapping) isValue()  {}

// Get returns the value stored under key. A stored Null counts as present.
func (m Mapping) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// GetString returns the string stored under key, or "" for any other value.
func (m Mapping) GetString(key string) string {
	if s, ok := m[key].(String); ok {
		return string(s)
	}
	return ""
}

func (m Mapping) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	m[key] = v
}

func (m Mapping) Delete(key string) {
	delete(m, key)
}

func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of m. A nil mapping clones to an empty one.
func (m Mapping) Clone() Mapping {
	return Clone(m).(Mapping)
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			out[k] = Clone(child)
		}
		return out
	case Sequence:
		out := make(Sequence, len(t))
		for i, child := range t {
			out[i] = Clone(child)
		}
		return out
	case nil:
		return Null{}
	default:
		return v
	}
}

// IsBlank reports whether v carries no content: null, an empty or whitespace-only
// string, an empty sequence or mapping, or false.
func IsBlank(v Value) bool {
	switch t := v.(type) {
	case nil, Null:
		return true
	case String:
		return strings.TrimSpace(string(t)) == ""
	case Bool:
		return !bool(t)
	case Sequence:
		return len(t) == 0
	case Mapping:
		return len(t) == 0
	default:
		return false
	}
}

// Equal reports whether a and b have the same shape and the same leaves.
func Equal(a, b Value) bool {
	switch ta := a.(type) {
	case Mapping:
		tb, ok := b.(Mapping)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case Sequence:
		tb, ok := b.(Sequence)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	default:
		return a == b
	}
}
