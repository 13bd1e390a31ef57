package moemail

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var longFraction = regexp.MustCompile(`(\.\d{6})\d+`)

// Layouts carrying a zone are parsed as-is. The rest are read in local
// time. Fractional seconds are accepted after any seconds field.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// parseTimestamp reads a provider timestamp. Strings are ISO-8601 in any
// of the common variants, with "Z" and over-long fractions tolerated.
// Numbers, and strings of digits, are Unix milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)), true
	case string:
		return parseTimestampString(t)
	default:
		return time.Time{}, false
	}
}

func parseTimestampString(s string) (time.Time, bool) {
	s = normalizeTimestamp(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// normalizeTimestamp truncates fractional seconds to six digits and
// rewrites a trailing "Z" as "+00:00".
func normalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	s = longFraction.ReplaceAllString(s, "$1")
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	return s
}
