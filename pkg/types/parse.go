package types

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseFloatPrefix reads the longest leading decimal number of v's textual
// form, ignoring leading whitespace and any trailing text ("12px" is 12).
// Numbers are returned as is. It reports false when no number leads the text.
func ParseFloatPrefix(v interface{}) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	case string, []byte:
	default:
		if f, ok := ToNumber(v); ok {
			return f, true
		}
	}
	s := strings.TrimLeft(ToString(v), " \t\n\r\f\v")
	m := floatPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// out of range still yields ±Inf from ParseFloat
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// ParseIntPrefix reads the leading integer of v's textual form. Numbers are
// truncated toward zero. It reports false when no digits lead the text.
func ParseIntPrefix(v interface{}) (int64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	case string, []byte:
	default:
		f, ok := ToNumber(v)
		if !ok || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(math.Trunc(f)), true
	}
	s := strings.TrimLeft(ToString(v), " \t\n\r\f\v")
	m := intPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
