package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/smallbiznis/pressline/internal/delivery/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"pgregory.net/rapid"
)

type fakeRepo struct {
	domain.Repository
	inserted []domain.Delivery
}

func (f *fakeRepo) InsertBatch(_ context.Context, _ *gorm.DB, deliveries []domain.Delivery) error {
	f.inserted = append(f.inserted, deliveries...)
	return nil
}

func (f *fakeRepo) CountBySubscription(_ context.Context, _ *gorm.DB, subscriptionID int64) (int64, error) {
	var n int64
	for _, d := range f.inserted {
		if d.SubscriptionID == subscriptionID {
			n++
		}
	}
	return n, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newGenerator(t testing.TB, lag int) (*Generator, *fakeRepo) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	policy := config.DefaultLifecyclePolicy()
	policy.CarrierLagDays = lag
	holder, err := config.NewStaticLifecyclePolicy(policy)
	require.NoError(t, err)
	repo := &fakeRepo{}
	g, err := New(Params{
		GenID:  node,
		Clock:  clock.NewFakeClock(day(2024, 1, 1)),
		Policy: holder,
		Repo:   repo,
	})
	require.NoError(t, err)
	return g, repo
}

func issueDates(deliveries []domain.Delivery) []time.Time {
	dates := make([]time.Time, 0, len(deliveries))
	for _, d := range deliveries {
		dates = append(dates, d.IssueDate)
	}
	return dates
}

func TestGenerateMonthlyQuarter(t *testing.T) {
	g, _ := newGenerator(t, 2)

	deliveries, err := g.Generate(Window{
		SubscriptionID: 42,
		Start:          day(2024, 1, 1),
		End:            day(2024, 3, 31),
		Periodicity:    publicationdomain.PeriodicityMonthly,
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 3)

	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 2, 1), day(2024, 3, 1)}, issueDates(deliveries))
	for i, d := range deliveries {
		assert.Equal(t, i+1, d.IssueNumber)
		assert.Equal(t, int64(42), d.SubscriptionID)
		assert.Equal(t, domain.StatusScheduled, d.Status)
		assert.Equal(t, d.IssueDate.AddDate(0, 0, 2), d.ExpectedDeliveryDate)
		assert.NotZero(t, d.ID)
	}
}

func TestGenerateCadences(t *testing.T) {
	cases := []struct {
		name        string
		periodicity publicationdomain.Periodicity
		start, end  time.Time
		want        int
	}{
		{"daily_leap_february", publicationdomain.PeriodicityDaily, day(2024, 2, 1), day(2024, 2, 29), 29},
		{"weekly_january", publicationdomain.PeriodicityWeekly, day(2024, 1, 1), day(2024, 1, 31), 5},
		{"quarterly_year", publicationdomain.PeriodicityQuarterly, day(2024, 1, 1), day(2024, 12, 31), 4},
		{"unknown_defaults_to_monthly", publicationdomain.Periodicity("biweekly"), day(2024, 1, 1), day(2024, 6, 30), 6},
		{"single_day", publicationdomain.PeriodicityMonthly, day(2024, 1, 1), day(2024, 1, 1), 1},
		{"end_before_start", publicationdomain.PeriodicityDaily, day(2024, 1, 10), day(2024, 1, 9), 0},
	}
	g, _ := newGenerator(t, 2)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deliveries, err := g.Generate(Window{SubscriptionID: 1, Start: tc.start, End: tc.end, Periodicity: tc.periodicity})
			require.NoError(t, err)
			assert.Len(t, deliveries, tc.want)
		})
	}
}

func TestGenerateMonthEndStartDoesNotDrift(t *testing.T) {
	g, _ := newGenerator(t, 0)

	deliveries, err := g.Generate(Window{
		SubscriptionID: 1,
		Start:          day(2024, 1, 31),
		End:            day(2024, 4, 30),
		Periodicity:    publicationdomain.PeriodicityMonthly,
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		day(2024, 1, 31),
		day(2024, 2, 29),
		day(2024, 3, 31),
		day(2024, 4, 30),
	}, issueDates(deliveries))
}

func TestGenerateUsesConfiguredLag(t *testing.T) {
	g, _ := newGenerator(t, 5)

	deliveries, err := g.Generate(Window{SubscriptionID: 1, Start: day(2024, 1, 1), End: day(2024, 1, 1)})
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, day(2024, 1, 6), deliveries[0].ExpectedDeliveryDate)
}

func TestGenerateRejectsIncompleteWindow(t *testing.T) {
	g, _ := newGenerator(t, 2)

	_, err := g.Generate(Window{SubscriptionID: 1, End: day(2024, 1, 1)})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
	_, err = g.Generate(Window{Start: day(2024, 1, 1), End: day(2024, 1, 1)})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestSchedulePersistsGeneratedRows(t *testing.T) {
	g, repo := newGenerator(t, 2)

	deliveries, err := g.Schedule(context.Background(), nil, Window{
		SubscriptionID: 7,
		Start:          day(2024, 1, 1),
		End:            day(2024, 3, 31),
		Periodicity:    publicationdomain.PeriodicityMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, deliveries, repo.inserted)

	again, err := g.Schedule(context.Background(), nil, Window{
		SubscriptionID: 7,
		Start:          day(2024, 1, 1),
		End:            day(2024, 3, 31),
		Periodicity:    publicationdomain.PeriodicityMonthly,
	})
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, repo.inserted, 3)
}

func TestGenerateProperties(t *testing.T) {
	g, _ := newGenerator(t, 2)
	periodicities := []publicationdomain.Periodicity{
		publicationdomain.PeriodicityDaily,
		publicationdomain.PeriodicityWeekly,
		publicationdomain.PeriodicityMonthly,
		publicationdomain.PeriodicityQuarterly,
	}

	rapid.Check(t, func(t *rapid.T) {
		start := day(2020, 1, 1).AddDate(0, 0, rapid.IntRange(0, 2000).Draw(t, "offset"))
		months := rapid.IntRange(1, 24).Draw(t, "months")
		periodicity := rapid.SampledFrom(periodicities).Draw(t, "periodicity")
		end := clock.PeriodEnd(start, months)

		deliveries, err := g.Generate(Window{SubscriptionID: 1, Start: start, End: end, Periodicity: periodicity})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(deliveries) == 0 {
			t.Fatalf("expected at least the first issue")
		}
		if !deliveries[0].IssueDate.Equal(start) {
			t.Fatalf("first issue %s, want %s", deliveries[0].IssueDate, start)
		}
		for i, d := range deliveries {
			if d.IssueDate.Before(start) || d.IssueDate.After(end) {
				t.Fatalf("issue %s outside [%s, %s]", d.IssueDate, start, end)
			}
			if i > 0 && !d.IssueDate.After(deliveries[i-1].IssueDate) {
				t.Fatalf("issue dates not strictly increasing at %d", i)
			}
		}
		next := IssueDate(start, periodicity, len(deliveries))
		if !next.After(end) {
			t.Fatalf("issue %s still inside window", next)
		}
	})
}
