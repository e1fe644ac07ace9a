// Package datefmt holds the date and timestamp layouts used in the record
// files, and small helpers around them.
package datefmt

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is yyyy-MM-dd.
	DateLayout = "2006-01-02"
	// DateTimeLayout is yyyy-MM-dd HH:mm.
	DateTimeLayout = "2006-01-02 15:04"
)

// ParseDate parses a yyyy-MM-dd value in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want yyyy-MM-dd)", s)
	}
	return t, nil
}

// ParseDateTime parses a yyyy-MM-dd HH:mm value in UTC.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q (want yyyy-MM-dd HH:mm)", s)
	}
	return t, nil
}

// FormatDate renders t as yyyy-MM-dd.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatDateTime renders t as yyyy-MM-dd HH:mm.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }

// Day drops the clock part of t, keeping its calendar date, and returns it
// as midnight UTC so it compares equal to a parsed DateLayout value.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
