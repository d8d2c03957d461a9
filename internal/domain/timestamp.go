package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError names the input field that could not be accepted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an RFC 3339 timestamp or a bare date. Bare dates and
// timestamps without an offset are taken as UTC.
func ParseTimestamp(field, value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "timestamp is empty"}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: field, Value: value, Reason: "unparseable timestamp"}
}

// FormatTimestamp renders t the way timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DaysSince returns the whole days elapsed from then to now, rounded down.
func DaysSince(then, now time.Time) int {
	d := now.Sub(then)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
