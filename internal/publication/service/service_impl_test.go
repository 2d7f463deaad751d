package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/publication/domain"
	"github.com/smallbiznis/pressline/internal/publication/repository"
	"github.com/smallbiznis/pressline/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    testdb.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestCreatePublicationValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Title: " ", Periodicity: domain.PeriodicityDaily, MonthlyPrice: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = svc.Create(ctx, domain.CreateRequest{Title: "Daily", Periodicity: "hourly", MonthlyPrice: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriodicity)

	_, err = svc.Create(ctx, domain.CreateRequest{Title: "Daily", Periodicity: domain.PeriodicityDaily})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{Title: "Daily", CategoryID: "nope", Periodicity: domain.PeriodicityDaily, MonthlyPrice: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestAvailabilityFiltersListing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Newspapers")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "Newspapers")
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	morning, err := svc.Create(ctx, domain.CreateRequest{
		CategoryID:   idString(category.ID),
		Title:        "Morning Post",
		Periodicity:  domain.PeriodicityDaily,
		MonthlyPrice: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	require.True(t, morning.IsAvailable)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Title:        "Weekly Review",
		Periodicity:  domain.PeriodicityWeekly,
		MonthlyPrice: decimal.RequireFromString("8"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetAvailability(ctx, idString(morning.ID), false))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Weekly Review", available[0].Title)

	err = svc.SetAvailability(ctx, "12345", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteAddsServicesToDiscountedPrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	publication, err := svc.Create(ctx, domain.CreateRequest{
		Title:        "Harbour Gazette",
		Periodicity:  domain.PeriodicityMonthly,
		MonthlyPrice: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	delivery, err := svc.CreateService(ctx, domain.CreateServiceRequest{Name: "Doorstep delivery", Price: decimal.RequireFromString("15")})
	require.NoError(t, err)

	quote, err := svc.Quote(ctx, domain.QuoteRequest{
		PublicationID: idString(publication.ID),
		PeriodMonths:  12,
		ServiceIDs:    []string{idString(delivery.ID), idString(delivery.ID)},
	})
	require.NoError(t, err)
	assert.True(t, quote.SubscriptionCost.Equal(decimal.RequireFromString("1080.00")), quote.SubscriptionCost.String())
	assert.True(t, quote.ServicesCost.Equal(decimal.RequireFromString("15.00")), quote.ServicesCost.String())
	assert.True(t, quote.Total.Equal(decimal.RequireFromString("1095.00")), quote.Total.String())
	assert.True(t, quote.DiscountFactor.Equal(decimal.RequireFromString("0.90")))

	_, err = svc.Quote(ctx, domain.QuoteRequest{PublicationID: idString(publication.ID), PeriodMonths: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = svc.Quote(ctx, domain.QuoteRequest{PublicationID: idString(publication.ID), PeriodMonths: 1, ServiceIDs: []string{"999"}})
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)
}

func TestParseIDsDeduplicates(t *testing.T) {
	ids, err := ParseIDs([]string{"3", " 1 ", "3"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)

	_, err = ParseIDs([]string{"x"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
