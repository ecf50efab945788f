package patch

import (
	"encoding/json"
	"math"
)

// StepCount is the fixed length of a sequencer step pattern.
const StepCount = 16

// Params holds the declared parameter values of one node. Values are the
// loosely typed scalars produced by JSON or YAML decoding; the accessors
// convert them and fall back to a caller-supplied default instead of ever
// returning an undefined value.
type Params map[string]any

// Num returns the numeric parameter key, or def if it is missing, not a
// number, NaN or infinite. Booleans read as 0 or 1.
func (p Params) Num(key string, def float64) float64 {
	v, ok := p.num(key)
	if !ok {
		return def
	}
	return v
}

// Has reports whether key is present with a usable value.
func (p Params) Has(key string) bool {
	if p == nil {
		return false
	}
	v, ok := p[key]
	return ok && v != nil
}

func (p Params) num(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}

	var f float64
	switch t := p[key].(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Str returns the string parameter key, or def if it is missing or empty.
func (p Params) Str(key, def string) string {
	if p == nil {
		return def
	}
	s, ok := p[key].(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// Bool returns the boolean parameter key. Missing values and numbers equal
// to zero read as false.
func (p Params) Bool(key string) bool {
	if p == nil {
		return false
	}
	switch t := p[key].(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		v, ok := p.num(key)
		return ok && v != 0
	}
}

// Steps returns the step pattern stored under key. Shorter patterns are
// padded with inactive steps, longer ones are truncated.
func (p Params) Steps(key string) [StepCount]bool {
	var out [StepCount]bool
	if p == nil {
		return out
	}

	switch t := p[key].(type) {
	case []bool:
		for i := 0; i < StepCount && i < len(t); i++ {
			out[i] = t[i]
		}
	case []any:
		for i := 0; i < StepCount && i < len(t); i++ {
			switch v := t[i].(type) {
			case bool:
				out[i] = v
			case float64:
				out[i] = v != 0
			case int:
				out[i] = v != 0
			}
		}
	case [StepCount]bool:
		out = t
	}
	return out
}

// Label returns the user-facing label of the node, if any.
func (p Params) Label() string {
	return p.Str("label", "")
}

// Clone returns a shallow copy of p. Step slices are copied so the clone
// can be mutated independently.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case []bool:
			out[k] = append([]bool(nil), t...)
		case []any:
			out[k] = append([]any(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}
