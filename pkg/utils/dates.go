package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date layout used by EDGAR and by output files.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in one of the layouts EDGAR emits and
// returns it at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{
		DateLayout,
		"2006-01-02T15:04:05.000Z",
		"01/02/2006",
		"01-02-2006",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
