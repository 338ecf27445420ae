package util

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for date-granularity values
const DateLayout = "2006-01-02"

// MonthLayout is the wire format for billing periods
const MonthLayout = "2006-01"

// ParseDate parses a required yyyy-mm-dd value
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
	}
	return t, nil
}

// ParseDatePtr parses an optional yyyy-mm-dd value, returning nil when empty
func ParseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMonth parses a yyyy-mm billing period to the first day of the month
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q, expected yyyy-mm", s)
	}
	return t, nil
}
