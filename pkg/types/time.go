package types

import (
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the timestamp formats produced by the backend resources.
// Numbers are taken as Unix milliseconds.
func ParseTime(v interface{}) (time.Time, bool) {
	if _, isStr := v.(string); !isStr {
		if f, ok := ToNumber(v); ok {
			return time.UnixMilli(int64(f)).UTC(), true
		}
	}
	s := strings.TrimSpace(ToString(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
