// Package timeutil provides calendar helpers for internship window math.
// All internship dates are stored and compared in UTC; the end-date rule is
// "whole calendar months first, then extension days", with month arithmetic
// clamped to the last valid day of the target month (Jan 31 + 1 month is
// Feb 29 in a leap year, Feb 28 otherwise - never Mar 2/3).
// No external dependencies - uses only standard library.
package timeutil

import "time"

// Date creates a UTC time with the given date at midnight.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds whole calendar months to t, clamping the day of
// month to the last valid day of the target month. The standard library's
// AddDate normalizes overflow instead (Jan 31 + 1 month = Mar 2/3), which is
// the wrong behaviour for internship windows.
func AddMonthsClamped(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}

	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// First day of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	last := DaysInMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// AddDays adds calendar days to t.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
