// Package timecal holds the calendar arithmetic the scheduling engine is
// built on: minute-of-day times, ISO dates and interval overlap checks.
// Everything here is pure; repositories and services supply the data.
package timecal

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseTimeOfDay converts an "HH:MM" string to minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// DayOfWeek returns the weekday of a "YYYY-MM-DD" date, 0=Sunday..6=Saturday.
func DayOfWeek(date string) (int, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}

// MonthDay returns the "MM-DD" part of a date, used to match recurring holidays.
func MonthDay(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.Format("01-02"), nil
}

// Overlaps reports whether the half-open minute intervals
// [start1, end1) and [start2, end2) intersect.
func Overlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && end1 > start2
}

// At combines a date and a time of day into an instant in the given location.
// A nil location means UTC.
func At(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

// DateRangeContains reports whether date falls inside the inclusive
// [startDate, endDate] range. ISO dates compare correctly as strings.
func DateRangeContains(startDate, endDate, date string) bool {
	return date >= startDate && date <= endDate
}
