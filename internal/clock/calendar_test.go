package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"plain", day(2024, 1, 1), 3, day(2024, 4, 1)},
		{"leap_february", day(2024, 1, 31), 1, day(2024, 2, 29)},
		{"non_leap_february", day(2023, 1, 31), 1, day(2023, 2, 28)},
		{"year_rollover", day(2024, 11, 15), 2, day(2025, 1, 15)},
		{"thirty_day_month", day(2024, 3, 31), 1, day(2024, 4, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonths(tc.start, tc.months))
		})
	}
}

func TestPeriodEnd(t *testing.T) {
	assert.Equal(t, day(2024, 3, 31), PeriodEnd(day(2024, 1, 1), 3))
	assert.Equal(t, day(2024, 12, 31), PeriodEnd(day(2024, 1, 1), 12))
	assert.Equal(t, day(2024, 2, 28), PeriodEnd(day(2024, 1, 31), 1))
}

func TestFirstOfNextMonth(t *testing.T) {
	assert.Equal(t, day(2024, 2, 1), FirstOfNextMonth(day(2024, 1, 31)))
	assert.Equal(t, day(2025, 1, 1), FirstOfNextMonth(day(2024, 12, 5)))
}

func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	fake := NewFakeClock(time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC))

	assert.Equal(t, day(2024, 5, 31), Today(fake, time.UTC))
	assert.Equal(t, day(2024, 6, 1), Today(fake, loc))
}

func TestPeriodEndProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := day(
			rapid.IntRange(2000, 2100).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 28).Draw(t, "day"),
		)
		months := rapid.IntRange(1, 36).Draw(t, "months")

		end := PeriodEnd(start, months)
		if !end.After(start) {
			t.Fatalf("end %s not after start %s", end, start)
		}
		if next := end.AddDate(0, 0, 1); !next.Equal(AddMonths(start, months)) {
			t.Fatalf("day after end %s != start+%d months", next, months)
		}
		if end.Hour() != 0 || end.Location() != time.UTC {
			t.Fatalf("end %s is not a UTC date", end)
		}
	})
}
