package service

import (
	"reflect"
	"strconv"

	"github.com/msk-triage-server/internal/domain"
)

// phenotypeKey is the one attribute path with set-membership semantics in
// the reverse direction: the record value is a list of phenotype tags and
// the expected scalar must be one of them.
const phenotypeKey = "phenotype"

// Matches reports whether every entry of cond holds against the record.
// An empty condition matches unconditionally. Pure; never mutates record.
func Matches(record domain.PatientRecord, cond domain.Condition) bool {
	for path, spec := range cond {
		if !matchEntry(record, path, spec) {
			return false
		}
	}
	return true
}

func matchEntry(record domain.PatientRecord, path string, spec domain.ValueSpec) bool {
	val := record.Resolve(path)

	if path == phenotypeKey && spec.Kind == domain.SpecEquals {
		if expected, ok := spec.Equals.(string); ok {
			return phenotypeContains(val, expected)
		}
	}

	switch spec.Kind {
	case domain.SpecEquals:
		return scalarEqual(val, spec.Equals)
	case domain.SpecOneOf:
		for _, candidate := range spec.OneOf {
			if scalarEqual(val, candidate) {
				return true
			}
		}
		return false
	case domain.SpecCompare:
		num, ok := toFloat(val)
		if !ok {
			return false
		}
		return compare(num, spec.Op, spec.Threshold)
	default:
		return false
	}
}

func phenotypeContains(val any, expected string) bool {
	switch tags := val.(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && s == expected {
				return true
			}
		}
	case []string:
		for _, t := range tags {
			if t == expected {
				return true
			}
		}
	}
	return false
}

// scalarEqual compares without numeric coercion. Uncomparable values
// (slices, maps) never equal anything.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func compare(num float64, op string, threshold float64) bool {
	switch op {
	case ">=":
		return num >= threshold
	case "<=":
		return num <= threshold
	case ">":
		return num > threshold
	case "<":
		return num < threshold
	case "=":
		return num == threshold
	default:
		return false
	}
}

// toFloat coerces record values to float64 for comparator conditions.
// Coercion failure means the condition is false, never an error.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
