package engine

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for date-only values throughout the system.
const DateLayout = "2006-01-02"

// ParseDate interprets an ISO-8601 date string as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &DateParseError{Value: value, Err: err}
	}
	return t.UTC(), nil
}

// truncateDate drops any time-of-day component, keeping the calendar date in UTC.
func truncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b. Zero when the dates are
// equal, negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(truncateDate(b).Sub(truncateDate(a)).Hours() / 24)
}

// weekStart returns the Monday beginning the ISO week containing t.
func weekStart(t time.Time) time.Time {
	t = truncateDate(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// weekID produces the stable YYYY-WW key for the ISO week containing t. The
// same key must be used everywhere weeks are grouped or compared.
func weekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
