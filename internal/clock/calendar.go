package clock

import "time"

// Calendar dates are represented as midnight UTC of the civil date so they
// compare and persist identically regardless of the operator's time zone.

// Date strips the time of day from t, keeping the civil date as seen in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateIn returns the civil date of t observed in loc.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc))
}

// Today returns the current civil date of c in loc.
func Today(c Clock, loc *time.Location) time.Time {
	return DateIn(c.Now(), loc)
}

// AddMonths adds n calendar months to date. When the target month is shorter
// than date's day of month, the result is clamped to that month's last day.
func AddMonths(date time.Time, n int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, date.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, date.Location())
}

// PeriodEnd returns the last covered day of a period of months starting at start.
func PeriodEnd(start time.Time, months int) time.Time {
	return AddMonths(start, months).AddDate(0, 0, -1)
}

// FirstOfNextMonth returns the first day of the month following date.
func FirstOfNextMonth(date time.Time) time.Time {
	y, m, _ := date.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, date.Location())
}

// AddDays shifts date by n days.
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
