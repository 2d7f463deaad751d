package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var allStatuses = []SubscriptionStatus{
	StatusCreated, StatusAwaitingPayment, StatusPaid, StatusActive, StatusCompleted, StatusCancelled,
}

func TestTerminalStatusesNeverTransition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom([]SubscriptionStatus{StatusCompleted, StatusCancelled}).Draw(t, "from")
		to := rapid.SampledFrom(allStatuses).Draw(t, "to")

		sub := Subscription{Status: from}
		err := sub.TransitionTo(to, day(2026, 1, 1))
		if err == nil {
			t.Fatalf("%s -> %s allowed", from, to)
		}
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
		if sub.Status != from {
			t.Fatalf("status changed to %s", sub.Status)
		}
	})
}

func TestTransitionStampsTimestamps(t *testing.T) {
	at := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	sub := Subscription{Status: StatusPaid}
	require.NoError(t, sub.TransitionTo(StatusActive, at))
	require.NotNil(t, sub.ActivatedAt)
	assert.Equal(t, at, *sub.ActivatedAt)

	require.NoError(t, sub.TransitionTo(StatusCompleted, at))
	require.NotNil(t, sub.CompletedAt)

	sub = Subscription{Status: StatusAwaitingPayment}
	require.NoError(t, sub.TransitionTo(StatusCancelled, at))
	require.NotNil(t, sub.CancelledAt)

	var transitionErr *TransitionError
	sub = Subscription{Status: StatusAwaitingPayment}
	require.ErrorAs(t, sub.TransitionTo(StatusActive, at), &transitionErr)
	assert.Equal(t, StatusAwaitingPayment, transitionErr.From)
}

func TestCalculateDatesClampsMonthEnd(t *testing.T) {
	start := day(2024, 1, 31)
	sub := Subscription{PeriodMonths: 1, PlannedStartDate: &start}
	sub.CalculateDates()
	require.NotNil(t, sub.PlannedEndDate)
	assert.Equal(t, day(2024, 2, 28), *sub.PlannedEndDate)

	sub.PeriodMonths = 0
	sub.CalculateDates()
	assert.Nil(t, sub.PlannedEndDate)
}

func TestMarkPaidFixesActualPeriod(t *testing.T) {
	sub := Subscription{Status: StatusAwaitingPayment, PeriodMonths: 3}
	paidAt := time.Date(2026, 3, 20, 15, 30, 0, 0, time.UTC)
	require.NoError(t, sub.MarkPaid(paidAt, day(2026, 4, 1)))

	assert.Equal(t, StatusPaid, sub.Status)
	assert.True(t, sub.IsFullyPaid)
	assert.Equal(t, day(2026, 4, 1), *sub.ActualStartDate)
	assert.Equal(t, day(2026, 6, 30), *sub.ActualEndDate)

	assert.Equal(t, "actual start date is in the future", sub.ActivationBlocker(day(2026, 3, 31)))
	assert.True(t, sub.CanBeActivated(day(2026, 4, 1)))
}

func TestActivationBlockerReasons(t *testing.T) {
	start := day(2026, 4, 1)
	cases := []struct {
		name string
		sub  Subscription
		want string
	}{
		{"wrong status", Subscription{Status: StatusAwaitingPayment}, "status is awaiting_payment"},
		{"unpaid", Subscription{Status: StatusPaid}, "not fully paid"},
		{"no start", Subscription{Status: StatusPaid, IsFullyPaid: true}, "no actual start date"},
		{"ready", Subscription{Status: StatusPaid, IsFullyPaid: true, ActualStartDate: &start}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sub.ActivationBlocker(day(2026, 4, 2)))
		})
	}
}

func TestAmountMismatchMatchesKind(t *testing.T) {
	err := error(&AmountMismatchError{})
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.NotErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, ErrConcurrentUpdate, ErrInvalidState)
	assert.ErrorIs(t, ErrPaymentDeadlinePast, ErrDeadlineExpired)
}
