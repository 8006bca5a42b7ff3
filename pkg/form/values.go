package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Values is a nested value tree addressed by dotted paths such as
// "defaultValue.max". Numeric segments index into slices.
type Values map[string]any

// Get resolves a dotted path.
func (v Values) Get(path string) (any, bool) {
	if v == nil || strings.TrimSpace(path) == "" {
		return nil, false
	}
	var current any = map[string]any(v)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Values:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path, creating intermediate maps as needed.
func (v Values) Set(path string, value any) error {
	if v == nil {
		return fmt.Errorf("%w: nil values", ErrInvalidPath)
	}
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}

	node := map[string]any(v)
	for i, segment := range segments[:len(segments)-1] {
		switch child := node[segment].(type) {
		case map[string]any:
			node = child
		case Values:
			node = child
		case []any:
			idx, err := strconv.Atoi(segments[i+1])
			if err != nil || idx < 0 || idx >= len(child) {
				return fmt.Errorf("%w: %q", ErrInvalidPath, path)
			}
			if i+1 == len(segments)-1 {
				child[idx] = value
				return nil
			}
			next, ok := child[idx].(map[string]any)
			if !ok {
				next = make(map[string]any)
				child[idx] = next
			}
			return Values(next).Set(strings.Join(segments[i+2:], "."), value)
		case nil:
			next := make(map[string]any)
			node[segment] = next
			node = next
		default:
			return fmt.Errorf("%w: %q crosses a %T", ErrInvalidPath, path, child)
		}
	}
	node[segments[len(segments)-1]] = value
	return nil
}

// Clone deep-copies the tree.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = deepCopy(value)
	}
	return out
}

// String returns the value at path formatted as a string ("" when absent).
func (v Values) String(path string) string {
	raw, ok := v.Get(path)
	if !ok || raw == nil {
		return ""
	}
	switch typed := raw.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// Float returns the numeric value at path. Strings are parsed with "," as an
// accepted decimal separator; unparsable input yields NaN so range rules can
// reject it.
func (v Values) Float(path string) float64 {
	raw, ok := v.Get(path)
	if !ok || raw == nil {
		return 0
	}
	switch typed := raw.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		trimmed := strings.ReplaceAll(strings.TrimSpace(typed), ",", ".")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Strings returns the string list at path.
func (v Values) Strings(path string) []string {
	raw, ok := v.Get(path)
	if !ok {
		return nil
	}
	switch typed := raw.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// Ints returns the integer list at path.
func (v Values) Ints(path string) []int {
	raw, ok := v.Get(path)
	if !ok {
		return nil
	}
	switch typed := raw.(type) {
	case []int:
		return append([]int(nil), typed...)
	case []any:
		out := make([]int, 0, len(typed))
		for _, item := range typed {
			switch n := item.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	default:
		return nil
	}
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case Values:
		return typed.Clone()
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case []int:
		return append([]int(nil), typed...)
	default:
		return typed
	}
}

func cloneErrors(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
