package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/pressline/internal/client/domain"
	clientrepository "github.com/smallbiznis/pressline/internal/client/repository"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	deliveryrepository "github.com/smallbiznis/pressline/internal/delivery/repository"
	"github.com/smallbiznis/pressline/internal/delivery/schedule"
	obsmetrics "github.com/smallbiznis/pressline/internal/observability/metrics"
	paymentrepository "github.com/smallbiznis/pressline/internal/payment/repository"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	publicationrepository "github.com/smallbiznis/pressline/internal/publication/repository"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/pressline/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/pressline/internal/subscription/service"
	"github.com/smallbiznis/pressline/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	clock        *clock.FakeClock
	node         *snowflake.Node
	repo         subscriptiondomain.Repository
	deliveryRepo deliverydomain.Repository
	rec          *Reconciler
	clientID     int64
	publication  *publicationdomain.Publication
}

// failingPublications fails lookups for one publication so a single row errors.
type failingPublications struct {
	publicationdomain.Repository
	failID int64
}

func (f failingPublications) FindByID(ctx context.Context, db *gorm.DB, id int64) (*publicationdomain.Publication, error) {
	if id == f.failID {
		return nil, errors.New("publication lookup failed")
	}
	return f.Repository.FindByID(ctx, db, id)
}

func newFixture(t *testing.T, now time.Time, cfg Config) *fixture {
	t.Helper()

	db := testdb.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(now)
	policy, err := config.NewStaticLifecyclePolicy(config.DefaultLifecyclePolicy())
	require.NoError(t, err)

	repo := subscriptionrepository.Provide()
	deliveryRepo := deliveryrepository.Provide()
	publicationRepo := publicationrepository.Provide()
	generator, err := schedule.New(schedule.Params{GenID: node, Clock: fakeClock, Policy: policy, Repo: deliveryRepo})
	require.NoError(t, err)

	svc := subscriptionservice.New(subscriptionservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           fakeClock,
		Policy:          policy,
		Repo:            repo,
		PaymentRepo:     paymentrepository.Provide(),
		DeliveryRepo:    deliveryRepo,
		PublicationRepo: publicationRepo,
		ClientRepo:      clientrepository.Provide(),
		Deliveries:      generator,
	})

	rec, err := New(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           fakeClock,
		Policy:          policy,
		Repo:            repo,
		PublicationRepo: publicationRepo,
		SubscriptionSvc: svc,
		Deliveries:      generator,
		Config:          cfg,
	})
	require.NoError(t, err)

	ctx := context.Background()
	publication := &publicationdomain.Publication{
		ID:           node.Generate().Int64(),
		Title:        "Weekly Almanac",
		Periodicity:  publicationdomain.PeriodicityWeekly,
		MonthlyPrice: decimal.RequireFromString("40"),
		IsAvailable:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, publicationrepository.Provide().Insert(ctx, db, publication))
	client := &clientdomain.Client{ID: node.Generate().Int64(), FullName: "Ivan Petrov", RegisteredAt: now, UpdatedAt: now}
	require.NoError(t, clientrepository.Provide().Insert(ctx, db, client))

	return &fixture{
		db:           db,
		clock:        fakeClock,
		node:         node,
		repo:         repo,
		deliveryRepo: deliveryRepo,
		rec:          rec,
		clientID:     client.ID,
		publication:  publication,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func (f *fixture) insert(t *testing.T, status subscriptiondomain.SubscriptionStatus, mutate func(*subscriptiondomain.Subscription)) int64 {
	t.Helper()
	now := f.clock.Now()
	sub := &subscriptiondomain.Subscription{
		ID:            f.node.Generate().Int64(),
		ClientID:      f.clientID,
		PublicationID: f.publication.ID,
		PeriodMonths:  1,
		MonthlyPrice:  f.publication.MonthlyPrice,
		TotalPrice:    f.publication.MonthlyPrice,
		Status:        status,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, sub))
	return sub.ID
}

func (f *fixture) status(t *testing.T, id int64) subscriptiondomain.SubscriptionStatus {
	t.Helper()
	sub, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub.Status
}

func TestExpiryPassBoundary(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 3, 0, 0, 0, time.UTC), Config{})

	endedYesterday := f.insert(t, subscriptiondomain.StatusActive, func(s *subscriptiondomain.Subscription) {
		s.ActualStartDate = ptr(day(2024, time.April, 10))
		s.ActualEndDate = ptr(day(2024, time.May, 9))
	})
	endsToday := f.insert(t, subscriptiondomain.StatusActive, func(s *subscriptiondomain.Subscription) {
		s.ActualStartDate = ptr(day(2024, time.April, 11))
		s.ActualEndDate = ptr(day(2024, time.May, 10))
	})

	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusCompleted, f.status(t, endedYesterday))
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, endsToday))

	sub, err := f.repo.FindByID(context.Background(), f.db, endedYesterday)
	require.NoError(t, err)
	assert.NotNil(t, sub.CompletedAt)
	assert.Equal(t, int64(2), sub.Version)

	require.NoError(t, f.rec.RunOnce(context.Background()))
	sub, err = f.repo.FindByID(context.Background(), f.db, endedYesterday)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sub.Version)
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, endsToday))
}

func TestPaymentDeadlinePassBoundary(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 22, 0, 0, 0, time.UTC), Config{})

	pastDeadline := f.insert(t, subscriptiondomain.StatusAwaitingPayment, func(s *subscriptiondomain.Subscription) {
		s.PaymentDeadline = ptr(day(2024, time.May, 9))
	})
	dueToday := f.insert(t, subscriptiondomain.StatusAwaitingPayment, func(s *subscriptiondomain.Subscription) {
		s.PaymentDeadline = ptr(day(2024, time.May, 10))
	})

	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusCancelled, f.status(t, pastDeadline))
	assert.Equal(t, subscriptiondomain.StatusAwaitingPayment, f.status(t, dueToday))

	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusAwaitingPayment, f.status(t, dueToday))
}

func TestForwardActivationPass(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC), Config{})

	nextMonth := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.IsFullyPaid = true
		s.PlannedStartDate = ptr(day(2024, time.April, 1))
		s.PlannedEndDate = ptr(day(2024, time.April, 30))
	})
	later := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.IsFullyPaid = true
		s.PlannedStartDate = ptr(day(2024, time.May, 1))
		s.PlannedEndDate = ptr(day(2024, time.May, 31))
	})

	// The 15th is not past the threshold.
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, nextMonth))

	f.clock.Set(time.Date(2024, time.March, 16, 0, 30, 0, 0, time.UTC))
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, nextMonth))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, later))

	sub, err := f.repo.FindByID(context.Background(), f.db, nextMonth)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.April, 1), sub.ActualStartDate.UTC())
	assert.Equal(t, day(2024, time.April, 30), sub.ActualEndDate.UTC())

	deliveries, err := f.deliveryRepo.ListBySubscription(context.Background(), f.db, nextMonth)
	require.NoError(t, err)
	require.Len(t, deliveries, 5)
	assert.Equal(t, day(2024, time.April, 29), deliveries[4].IssueDate.UTC())

	require.NoError(t, f.rec.RunOnce(context.Background()))
	count, err := f.deliveryRepo.CountBySubscription(context.Background(), f.db, nextMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestRowFailureDoesNotAbortPass(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now, Config{})

	other := &publicationdomain.Publication{
		ID:           f.node.Generate().Int64(),
		Title:        "Monthly Review",
		Periodicity:  publicationdomain.PeriodicityMonthly,
		MonthlyPrice: decimal.RequireFromString("10"),
		IsAvailable:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, publicationrepository.Provide().Insert(context.Background(), f.db, other))
	f.rec.publicationRepo = failingPublications{Repository: publicationrepository.Provide(), failID: f.publication.ID}

	failing := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.PlannedStartDate = ptr(day(2024, time.April, 1))
	})
	healthy := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.PublicationID = other.ID
		s.PlannedStartDate = ptr(day(2024, time.April, 2))
	})

	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, failing))
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, healthy))

	select {
	case report := <-f.rec.Errors():
		assert.Equal(t, PassForwardActivation, report.Pass)
		assert.Equal(t, failing, report.SubscriptionID)
		assert.ErrorContains(t, report, "publication lookup failed")
	default:
		t.Fatal("expected a reported row error")
	}

	count, err := f.deliveryRepo.CountBySubscription(context.Background(), f.db, failing)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFailingRowsDoNotStarveLaterRows(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now, Config{BatchSize: 1})

	other := &publicationdomain.Publication{
		ID:           f.node.Generate().Int64(),
		Title:        "Monthly Review",
		Periodicity:  publicationdomain.PeriodicityMonthly,
		MonthlyPrice: decimal.RequireFromString("10"),
		IsAvailable:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, publicationrepository.Provide().Insert(context.Background(), f.db, other))
	f.rec.publicationRepo = failingPublications{Repository: publicationrepository.Provide(), failID: f.publication.ID}

	firstFailing := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.PlannedStartDate = ptr(day(2024, time.April, 1))
	})
	secondFailing := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.PlannedStartDate = ptr(day(2024, time.April, 1))
	})
	healthy := f.insert(t, subscriptiondomain.StatusPaid, func(s *subscriptiondomain.Subscription) {
		s.PublicationID = other.ID
		s.PlannedStartDate = ptr(day(2024, time.April, 2))
	})

	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, firstFailing))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, secondFailing))
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, healthy))

	reported := map[int64]bool{}
	for len(f.rec.Errors()) > 0 {
		report := <-f.rec.Errors()
		reported[report.SubscriptionID] = true
	}
	assert.Equal(t, map[int64]bool{firstFailing: true, secondFailing: true}, reported)
}

func TestExpiryPassPagesThroughAllRows(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 3, 0, 0, 0, time.UTC), Config{BatchSize: 2})

	ids := make([]int64, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, f.insert(t, subscriptiondomain.StatusActive, func(s *subscriptiondomain.Subscription) {
			s.ActualStartDate = ptr(day(2024, time.April, 1))
			s.ActualEndDate = ptr(day(2024, time.April, 30))
		}))
	}

	require.NoError(t, f.rec.RunOnce(context.Background()))
	for _, id := range ids {
		assert.Equal(t, subscriptiondomain.StatusCompleted, f.status(t, id))
	}
}

func TestDueActivationPassIsOptIn(t *testing.T) {
	now := time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)
	paidDue := func(s *subscriptiondomain.Subscription) {
		s.IsFullyPaid = true
		s.PaidAt = ptr(day(2024, time.March, 10))
		s.PlannedStartDate = ptr(day(2024, time.March, 15))
		s.ActualStartDate = ptr(day(2024, time.April, 1))
		s.ActualEndDate = ptr(day(2024, time.April, 30))
	}

	f := newFixture(t, now, Config{})
	id := f.insert(t, subscriptiondomain.StatusPaid, paidDue)
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusPaid, f.status(t, id))

	f = newFixture(t, now, Config{AutoActivateDue: true})
	id = f.insert(t, subscriptiondomain.StatusPaid, paidDue)
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, subscriptiondomain.StatusActive, f.status(t, id))

	count, err := f.deliveryRepo.CountBySubscription(context.Background(), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestRunForeverRunsAtStartupAndStops(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), Config{RunInterval: time.Hour})
	id := f.insert(t, subscriptiondomain.StatusAwaitingPayment, func(s *subscriptiondomain.Subscription) {
		s.PaymentDeadline = ptr(day(2024, time.May, 1))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.rec.RunForever(ctx)
	}()

	require.Eventually(t, func() bool {
		sub, err := f.repo.FindByID(context.Background(), f.db, id)
		return err == nil && sub != nil && sub.Status == subscriptiondomain.StatusCancelled
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestRunPassTimeoutIsSoft(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetReconcilerMetricsForTest()
	obsmetrics.ReconcilerWithConfig(obsmetrics.Config{ServiceName: "pressline", Environment: "test"})

	f := newFixture(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), Config{PassTimeout: 5 * time.Millisecond})
	err := f.rec.runPass(context.Background(), "slow_pass", func(ctx context.Context, _ *passRun) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{"service": "pressline", "env": "test", "pass": "slow_pass"}
	assert.Equal(t, float64(1), counterValue(t, registry, "pressline_reconciler_pass_timeouts_total", labels))

	errorLabels := map[string]string{"service": "pressline", "env": "test", "pass": "slow_pass", "reason": obsmetrics.ReasonDeadlineExceeded}
	assert.Equal(t, float64(1), counterValue(t, registry, "pressline_reconciler_pass_errors_total", errorLabels))
}

func TestRunPassRecoversPanic(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), Config{})

	err := f.rec.runPass(context.Background(), "exploding_pass", func(context.Context, *passRun) error {
		panic("boom")
	})
	require.ErrorIs(t, err, obsmetrics.ErrPassPanicked)

	report := <-f.rec.Errors()
	assert.Equal(t, "exploding_pass", report.Pass)
	assert.Zero(t, report.SubscriptionID)
	assert.ErrorIs(t, report, obsmetrics.ErrPassPanicked)
}

func TestErrorsChannelDropsWhenFull(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), Config{ErrorBuffer: 1})

	f.rec.publish(PassError{Pass: "a", Err: errors.New("first")})
	f.rec.publish(PassError{Pass: "b", Err: errors.New("second")})

	first := <-f.rec.Errors()
	assert.Equal(t, "a", first.Pass)
	select {
	case extra := <-f.rec.Errors():
		t.Fatalf("unexpected report %v", extra)
	default:
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Params{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	f := newFixture(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), Config{})
	_, err = New(Params{
		DB:              f.db,
		Log:             zap.NewNop(),
		GenID:           f.node,
		Clock:           f.clock,
		Policy:          f.rec.policy,
		Repo:            f.repo,
		PublicationRepo: f.rec.publicationRepo,
		SubscriptionSvc: f.rec.subscriptionSvc,
		Deliveries:      f.rec.deliveries,
		Config:          Config{Cron: "every tuesday"},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetReconcilerMetricsForTest()
	}
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
