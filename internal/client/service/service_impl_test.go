package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/client/domain"
	"github.com/smallbiznis/pressline/internal/client/repository"
	"github.com/smallbiznis/pressline/internal/clock"
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

func TestRegisterRejectsDuplicatePassport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, domain.RegisterRequest{
		FullName:       " Maria Ivanova ",
		Address:        "12 Quay Street",
		PassportSeries: "4510",
		PassportNumber: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Ivanova", first.FullName)
	require.NotNil(t, first.Address)
	assert.Nil(t, first.Phone)

	_, err = svc.Register(ctx, domain.RegisterRequest{
		FullName:       "Someone Else",
		PassportSeries: "4510",
		PassportNumber: "123456",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePassport)

	// Clients without passports never collide.
	_, err = svc.Register(ctx, domain.RegisterRequest{FullName: "No Papers"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, domain.RegisterRequest{FullName: "No Papers"})
	require.NoError(t, err)
}

func TestRegisterValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{FullName: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Register(ctx, domain.RegisterRequest{FullName: "Half Passport", PassportSeries: "4510"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassport)
}

func TestGetAndSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	maria, err := svc.Register(ctx, domain.RegisterRequest{FullName: "Maria Ivanova"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, domain.RegisterRequest{FullName: "Pavel Sidorov"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, strconv.FormatInt(maria.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, maria.ID, got.ID)

	_, err = svc.Get(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	found, err := svc.Search(ctx, "ivan")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, maria.ID, found[0].ID)
}
