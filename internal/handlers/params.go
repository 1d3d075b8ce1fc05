package handlers

import "strconv"

// Planner output arrives as decoded JSON, so numeric params are float64
// and everything needs a tolerant lookup.

// Str returns the first non-empty string value among the given keys.
func Str(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Num returns the numeric value of a param, accepting float64, int and
// numeric strings.
func Num(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// StrSlice coerces a param into a string slice. JSON arrays decode as
// []any, so each element is stringified if possible.
func StrSlice(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
