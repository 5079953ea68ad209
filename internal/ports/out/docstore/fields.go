package docstore

import (
	"encoding/json"
	"maps"
	"math"
)

// Fields is the field set of a document.
type Fields map[string]any

// Clone deep-copies slices and nested maps so the result shares no mutable state.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := maps.Clone(x)
		for k, vv := range out {
			out[k] = cloneValue(vv)
		}
		return out
	case Fields:
		return x.Clone()
	default:
		return v
	}
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

func (f Fields) Float(key string) float64 {
	v, _ := AsFloat(f[key])
	return v
}

func (f Fields) Int(key string) int {
	v, ok := AsFloat(f[key])
	if !ok {
		return 0
	}
	return int(math.Round(v))
}

// Strings reads a string list stored either as []string or as []any of strings.
// Non-string elements are skipped.
func (f Fields) Strings(key string) []string {
	switch x := f[key].(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, v := range x {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// AsFloat converts any numeric representation a backend may return.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
