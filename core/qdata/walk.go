package qdata

// Walk returns a fresh copy of v in which every String leaf has been passed through fn.
// Mappings keep all their keys and sequences their order and length; any other leaf
// is returned as is. v itself is never modified.
func Walk(v Value, fn func(string) string) Value {
	switch t := v.(type) {
	case String:
		return String(fn(string(t)))
	case Sequence:
		out := make(Sequence, len(t))
		for i, child := range t {
			out[i] = Walk(child, fn)
		}
		return out
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			out[k] = Walk(child, fn)
		}
		return out
	default:
		return v
	}
}

// WalkMapping is Walk for a mapping root.
func WalkMapping(m Mapping, fn func(string) string) Mapping {
	if m == nil {
		return Mapping{}
	}
	return Walk(m, fn).(Mapping)
}
