package types

import (
	"encoding/json"
	"fmt"
)

// NormalizeValue converts v into the canonical JSON value form: nil, bool,
// float64, string, []any or map[string]any. Typed Go values (ints, structs,
// typed maps) are round-tripped through JSON so that a value read back from
// storage compares equal to the value that was written.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case nil, bool, float64, string:
		return v
	}

	raw, err := json.Marshal(v)
	if err != nil {
		// Non-serializable values cannot have come from a JSON document;
		// fall back to the string form so comparison stays total.
		return fmt.Sprintf("%v", v)
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}

// ValuesEqual reports deep equality of two JSON-shaped values after
// normalization. Numbers compare by float64 value, objects by key set and
// recursive value equality, arrays element-wise.
func ValuesEqual(a, b any) bool {
	return normalizedEqual(NormalizeValue(a), NormalizeValue(b))
}

func normalizedEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !normalizedEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !normalizedEqual(v, w) {
				return false
			}
		}
		return true
	}
	return false
}

// NormalizeValueMap returns a new map holding every value of m normalized;
// m itself is not modified. A nil map yields an empty one so callers never
// persist a JSON null where an object is expected.
func NormalizeValueMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeValue(v)
	}
	return out
}
