package depreciation

import "time"

// EndOfMonth returns the last day of the given month at midnight UTC.
func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return EndOfMonth(t.Year(), t.Month())
}

// FirstOfMonth returns the first day of the given month at midnight UTC.
func FirstOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return MonthEnd(t).Day()
}

// IsEndOfMonth reports whether t falls on the last day of its month.
func IsEndOfMonth(t time.Time) bool {
	return t.Day() == DaysInMonth(t)
}

// NextMonth returns the month following (year, month).
func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// PrevMonth returns the month preceding (year, month).
func PrevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// MonthsElapsed returns the whole calendar months between freshen and
// target, ignoring days. Never negative.
func MonthsElapsed(freshen, target time.Time) int {
	m := (target.Year()-freshen.Year())*12 + int(target.Month()) - int(freshen.Month())
	if m < 0 {
		return 0
	}
	return m
}
