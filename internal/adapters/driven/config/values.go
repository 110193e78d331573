// Package config holds the value conversions shared by the config store
// adapters. Stores keep values keyed by dotted names such as
// "chunking.size"; the file store nests them into TOML tables on disk.
package config

import (
	"strconv"
	"strings"
)

// AsString converts a stored value to a string.
// Returns empty string for missing or non-string values.
func AsString(val any) string {
	str, _ := val.(string)
	return str
}

// AsInt converts a stored value to an int.
// TOML integers are parsed as int64; numeric strings are accepted too.
func AsInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// AsFloat converts a stored value to a float64.
func AsFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AsBool converts a stored value to a bool.
func AsBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// AsStringSlice converts a stored value to a string slice.
// TOML arrays are parsed as []any.
func AsStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Flatten converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(m map[string]any) map[string]any {
	result := make(map[string]any)
	flatten(result, m, "")
	return result
}

func flatten(dst, m map[string]any, prefix string) {
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(dst, nested, fullKey)
		} else {
			dst[fullKey] = value
		}
	}
}

// Nest is the inverse of Flatten: {"a.b": 1} becomes {"a": {"b": 1}}.
// A key that is both a value and a table prefix keeps the table.
func Nest(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		m := result
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		last := parts[len(parts)-1]
		if _, isTable := m[last].(map[string]any); !isTable {
			m[last] = value
		}
	}
	return result
}
