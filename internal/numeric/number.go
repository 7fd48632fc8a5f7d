package numeric

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Number is a numeric leaf as it arrives from a form or a stored payload.
// It accepts JSON numbers, numeric strings ("$1,250.50"), empty strings and
// null. Anything that does not coerce to a finite value is held as absent.
type Number struct {
	value float64
	valid bool
}

// Of returns a Number holding v. Non-finite values produce an absent Number.
func Of(v float64) Number {
	if !Finite(v) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// Null returns an absent Number.
func Null() Number { return Number{} }

// Valid reports whether the Number holds a finite value.
func (n Number) Valid() bool { return n.valid }

// Value returns the held value and whether it is present.
func (n Number) Value() (float64, bool) { return n.value, n.valid }

// Or returns the held value, or fallback when absent.
func (n Number) Or(fallback float64) float64 {
	if !n.valid {
		return fallback
	}
	return n.value
}

// Float returns the held value, or 0 when absent.
func (n Number) Float() float64 { return n.Or(0) }

// Ptr returns a pointer to the held value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// MarshalJSON writes the value, or null when absent.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

// UnmarshalJSON never fails on a well-formed JSON scalar: unparseable input
// becomes an absent Number.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Number{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "numeric: decode string")
		}
		if v, ok := Parse(s); ok {
			*n = Of(v)
		}
		return nil
	case 't', 'f', '{', '[':
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*n = Of(v)
	return nil
}

// UnmarshalYAML decodes the same shapes as UnmarshalJSON from a YAML scalar.
func (n *Number) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return eris.Wrap(err, "numeric: decode yaml")
	}
	*n = Number{}
	if v, ok := FromAny(raw); ok {
		*n = Of(v)
	}
	return nil
}
