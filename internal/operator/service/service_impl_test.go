package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/operator/domain"
	"github.com/smallbiznis/pressline/internal/operator/repository"
	"github.com/smallbiznis/pressline/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    testdb.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	}), fakeClock
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	op, err := svc.Create(ctx, domain.CreateRequest{Login: " Clerk ", FullName: "Desk Clerk", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "clerk", op.Login)

	_, err = svc.Login(ctx, "clerk", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	result, err := svc.Login(ctx, "CLERK", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, op.ID, result.Session.OperatorID)

	session, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, session.Valid())
	assert.Equal(t, "Desk Clerk", session.FullName)

	require.NoError(t, svc.Logout(ctx, result.Token))
	_, err = svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	again, err := svc.Login(ctx, "clerk", "correct-horse")
	require.NoError(t, err)
	fakeClock.Advance(sessionTTL)
	_, err = svc.Authenticate(ctx, again.Token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Login: "", Password: "long-enough"})
	assert.ErrorIs(t, err, domain.ErrInvalidLogin)
	_, err = svc.Create(ctx, domain.CreateRequest{Login: "clerk", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	_, err = svc.Create(ctx, domain.CreateRequest{Login: "clerk", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Login: "Clerk", Password: "long-enough"})
	assert.ErrorIs(t, err, domain.ErrDuplicateLogin)
}

func TestEnsureBootstrapAdminOnlyOnEmptyTable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, domain.CreateRequest{Login: "admin", Password: "bootstrap-pass"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureBootstrapAdmin(ctx, domain.CreateRequest{Login: "second", Password: "bootstrap-pass"})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(ctx, "second", "bootstrap-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
