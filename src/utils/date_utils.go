package utils

import (
	"strings"
	"time"
)

const (
	ISODateFormat     = "2006-01-02"
	CompactDateFormat = "20060102"
)

// ParseDate parses the two date formats seen across broker exports:
// ISO "2006-01-02" and the compact "20060102" used on Flex trade rows.
// Blank input returns ok=false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{ISODateFormat, CompactDateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDatePtr is ParseDate with a nil result for absent or unparseable input.
func ParseDatePtr(s string) *time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}

// FormatDate renders a date in the canonical ISO form used by the store.
func FormatDate(t time.Time) string {
	return t.Format(ISODateFormat)
}
