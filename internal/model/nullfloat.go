package model

import (
	"math"
	"strconv"
	"strings"
)

// NullFloat is a float column that may hold no value. Decoding never
// fails: empty, "nan" and non-numeric text all decode to an invalid value,
// which encodes back as an empty cell.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat. NaN and infinities are stored as invalid.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// OrNaN returns the value, or NaN when unset.
func (n NullFloat) OrNaN() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// MarshalText writes the shortest round-trippable form, or nothing.
func (n NullFloat) MarshalText() ([]byte, error) {
	if !n.Valid {
		return []byte{}, nil
	}
	return []byte(strconv.FormatFloat(n.Float64, 'f', -1, 64)), nil
}

// UnmarshalText coerces text to a float; see the type comment.
func (n *NullFloat) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	v, err := strconv.ParseFloat(s, 64)
	if s == "" || err != nil {
		*n = NullFloat{}
		return nil
	}
	*n = Float(v)
	return nil
}
