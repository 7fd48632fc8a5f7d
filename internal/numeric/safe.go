// Package numeric centralizes defensive number handling for every calculator:
// coercion of loosely typed input, NaN and Inf suppression, clamping and
// cent rounding.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Safe maps NaN and Inf to 0.
func Safe(v float64) float64 {
	if !Finite(v) {
		return 0
	}
	return v
}

// SafeNonNeg maps NaN, Inf and negatives to 0.
func SafeNonNeg(v float64) float64 {
	v = Safe(v)
	if v < 0 {
		return 0
	}
	return v
}

// Clamp bounds v to [lo, hi]. A non-finite v returns lo.
func Clamp(v, lo, hi float64) float64 {
	if !Finite(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given decimal places.
// Non-finite input rounds to 0.
func Round(v float64, places int32) float64 {
	if !Finite(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Money rounds to cents.
func Money(v float64) float64 { return Round(v, 2) }

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 { return &v }

// PtrOr dereferences p, or returns fallback for nil or non-finite values.
func PtrOr(p *float64, fallback float64) float64 {
	if p == nil || !Finite(*p) {
		return fallback
	}
	return *p
}

// Parse reads a money-like string. Currency symbols, thousands separators,
// percent signs and whitespace are ignored.
func Parse(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !Finite(v) {
		return 0, false
	}
	return v, true
}

// FromAny coerces a loosely typed value (as decoded from JSON or YAML) into a
// finite float.
func FromAny(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		return Parse(x)
	case Number:
		return x.Value()
	case *float64:
		if x == nil {
			return 0, false
		}
		f = *x
	default:
		return 0, false
	}
	if !Finite(f) {
		return 0, false
	}
	return f, true
}
