package chart

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind is the dynamic type held by a Value
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindFloat
)

// Value is a buffered scalar: a string, an int64, a float64, or absent.
// The zero Value is absent.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// StringValue wraps s
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind returns the dynamic type of v
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds no value
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Float64 returns the numeric value of an int or float Value
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// String returns the canonical text form used by rule matching and labels.
// Absent values format as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	}
	return ""
}

// Matches reports whether a present value equals a rule value. Numeric
// values also match any rule value that parses to the same number, so
// "2.0" matches 2.
func (v Value) Matches(expected string) bool {
	if v.IsAbsent() {
		return false
	}
	if v.String() == expected {
		return true
	}
	f, ok := v.Float64()
	if !ok {
		return false
	}
	want, err := strconv.ParseFloat(expected, 64)
	return err == nil && f == want
}

// Interface returns the wrapped Go value, or nil when absent
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	}
	return nil
}

// MarshalJSON encodes absent and non-finite values as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(v.String()), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return []byte(v.String()), nil
	}
	return []byte("null"), nil
}
