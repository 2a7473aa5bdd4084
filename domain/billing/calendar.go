package billing

import "time"

// MonthsBetween returns the number of calendar months from a to b,
// ignoring the day of month. MonthsBetween(Jan 31, Feb 1) == 1.
// This is a PURE function.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// MonthSpan returns the inclusive count of calendar months touched by [start, end].
// This is a PURE function.
func MonthSpan(start, end time.Time) int {
	return MonthsBetween(start, end) + 1
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BillingDate returns the date in (year, month) that falls on day, clamped
// to the month's last day.
// This is a PURE function.
func BillingDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysIn(year, month, loc); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// midpoint returns the instant halfway between a and b.
func midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2)
}
