// Package types provides the core data types shared by the Forge admin dashboard.
package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Row is a single loosely-typed record as returned by a backend resource.
// Values are scalars (string, float64, json.Number, bool, nil) except for
// nested JSON documents such as a workflow's state.
type Row map[string]interface{}

// Get returns the value stored under key, or nil when absent.
func (r Row) Get(key string) interface{} {
	if r == nil {
		return nil
	}
	return r[key]
}

// Has reports whether key is present with a non-nil value.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the display form of the value under key.
func (r Row) String(key string) string {
	return ToString(r.Get(key))
}

// Clone returns a shallow copy of the row. A nil row clones to an empty row.
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToString converts a row value into its textual form. nil becomes the
// empty string, integral floats print without a fractional part and nested
// documents are rendered as compact JSON.
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber returns the numeric value of v. Numbers and strings holding a
// complete decimal number convert; everything else reports false.
func ToNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if !isDecimal(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isDecimal reports whether s is a plain decimal literal: an optional sign,
// digits with at most one point, and an optional exponent. Infinity, NaN and
// hex forms are rejected.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// Truthy reports whether v counts as set: non-empty strings, non-zero
// numbers, true, and any nested document.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []byte:
		return len(t) > 0
	}
	if f, ok := ToNumber(v); ok {
		return f != 0
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return false
	}
	return true
}
