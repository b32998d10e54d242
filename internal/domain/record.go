package domain

import "strings"

// PatientRecord is the structured, partially populated patient-data record
// assembled upstream during a triage conversation. It is addressed by
// dot-separated attribute paths (e.g. "exam.lachman") and carries no fixed
// schema; any path may be absent.
type PatientRecord map[string]any

// Resolve walks the record along a dot-separated path. A missing key or a
// non-object intermediate yields nil, never an error: mid-conversation
// records are expected to be partial.
func (r PatientRecord) Resolve(path string) any {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// Section returns the nested object at path, or nil if absent or not an
// object. Used to guard aggregate rules against missing sub-scores.
func (r PatientRecord) Section(path string) map[string]any {
	obj, _ := r.Resolve(path).(map[string]any)
	return obj
}

// Clone deep-copies the record through its nested objects and lists.
// Callers that treat records as immutable values clone before writing.
func (r PatientRecord) Clone() PatientRecord {
	return PatientRecord(cloneObject(map[string]any(r)))
}

// Set writes a value at a dot-separated path, creating intermediate
// objects as needed. A non-object intermediate is replaced.
func (r PatientRecord) Set(path string, value any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(r)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func cloneObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneObject(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Truthy reports whether a resolved value counts as present for red-flag
// evaluation: non-nil, non-false, non-zero, non-empty.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
