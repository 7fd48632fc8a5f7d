package policy

import (
	"strings"

	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Config is a flat mapping of named policy settings as stored by the
// configuration collaborator: numbers, strings, toggles and banded tables.
// Posture-specific values live under the postureConfigs key.
type Config map[string]any

// PostureConfigsKey holds per-posture overrides of posture-aware keys.
const PostureConfigsKey = "postureConfigs"

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

// Float returns the numeric value of key and whether it coerced.
func (c Config) Float(key string) (float64, bool) {
	return numeric.FromAny(c[key])
}

// FloatOr returns the numeric value of key, or fallback.
func (c Config) FloatOr(key string, fallback float64) float64 {
	if v, ok := c.Float(key); ok {
		return v
	}
	return fallback
}

// BoolOr returns the boolean value of key, or fallback. Strings "true" and
// "false" are accepted.
func (c Config) BoolOr(key string, fallback bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return fallback
}

// StringOr returns the non-empty string value of key, or fallback.
func (c Config) StringOr(key, fallback string) string {
	if v, ok := c[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// Rows returns a banded table as a list of rows. Rows that are not objects
// are skipped.
func (c Config) Rows(key string) []map[string]any {
	list, ok := c[key].([]any)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := asMap(item); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// PostureValues returns the override map for posture p, or nil.
func (c Config) PostureValues(p Posture) map[string]any {
	all, ok := asMap(c[PostureConfigsKey])
	if !ok {
		return nil
	}
	m, _ := asMap(all[string(p)])
	return m
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Config:
		return map[string]any(m), true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	}
	return nil, false
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Config:
		return cloneValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case map[any]any:
		m, _ := asMap(x)
		return cloneValue(m)
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

func rowFloat(row map[string]any, key string) (float64, bool) {
	return numeric.FromAny(row[key])
}

func rowString(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return strings.TrimSpace(s)
}
