package hook

import (
	"path"
	"reflect"
	"strings"

	"github.com/boshu2/hookfire/internal/event"
)

// Filter key suffixes for list-valued context fields.
const (
	filterSuffixAny = "_any"
	filterSuffixAll = "_all"
)

// Matcher selects events by type pattern plus optional context filters.
// All filter clauses must hold for a match; clauses on missing context
// fields fail.
type Matcher struct {
	Type    string         `yaml:"type" json:"type"`
	Filters map[string]any `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// Matches reports whether the event satisfies the type pattern and every
// filter clause.
func (m Matcher) Matches(ev event.Event) bool {
	if !typePatternMatches(m.Type, ev.Type) {
		return false
	}
	for key, want := range m.Filters {
		if !filterClauseMatches(key, want, ev.Context) {
			return false
		}
	}
	return true
}

// typePatternMatches compares an event type against a glob-style pattern.
// Event types are dot-separated and contain no slashes, so a '*' spans
// segments: "task.*" matches both "task.completed" and "task.run.completed".
func typePatternMatches(pattern, eventType string) bool {
	if pattern == "" {
		return false
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == eventType
	}
	ok, err := path.Match(pattern, eventType)
	return err == nil && ok
}

// filterClauseMatches evaluates a single filter clause against the event
// context. Plain keys compare for equality, with a list-valued expectation
// meaning "equal to any member". Keys suffixed "_any" or "_all" strip the
// suffix and test membership against a list-valued context field.
func filterClauseMatches(key string, want any, ctx map[string]any) bool {
	switch {
	case strings.HasSuffix(key, filterSuffixAny):
		field := strings.TrimSuffix(key, filterSuffixAny)
		actual, ok := asList(ctx[field])
		if !ok {
			return false
		}
		for _, w := range asListAlways(want) {
			if containsValue(actual, w) {
				return true
			}
		}
		return false

	case strings.HasSuffix(key, filterSuffixAll):
		field := strings.TrimSuffix(key, filterSuffixAll)
		actual, ok := asList(ctx[field])
		if !ok {
			return false
		}
		for _, w := range asListAlways(want) {
			if !containsValue(actual, w) {
				return false
			}
		}
		return true

	default:
		actual, ok := ctx[key]
		if !ok {
			return false
		}
		if wantList, isList := asList(want); isList {
			return containsValue(wantList, actual)
		}
		return valueEqual(want, actual)
	}
}

// asList normalizes the list shapes that YAML and JSON decoding produce.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// asListAlways treats a scalar expectation as a one-element list.
func asListAlways(v any) []any {
	if list, ok := asList(v); ok {
		return list
	}
	return []any{v}
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if valueEqual(item, v) {
			return true
		}
	}
	return false
}

// valueEqual compares filter values with numeric tolerance, so a YAML
// integer matches a JSON float of the same value.
func valueEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
