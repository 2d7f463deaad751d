package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ReasonDeadlineExceeded},
		{"wrapped_deadline", fmt.Errorf("expiry: %w", context.DeadlineExceeded), ReasonDeadlineExceeded},
		{"canceled", context.Canceled, ReasonCanceled},
		{"panic", fmt.Errorf("expiry: %w", ErrPassPanicked), ReasonPanic},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, ReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, ReasonSerializationFailure},
		{"unique_violation", gorm.ErrDuplicatedKey, ReasonUniqueViolation},
		{"concurrent_update", subscriptiondomain.ErrConcurrentUpdate, ReasonConcurrentUpdate},
		{"business_rule", subscriptiondomain.ErrNotAwaitingPayment, ReasonBusinessRule},
		{"unknown", errors.New("boom"), ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyReason(tc.err))
		})
	}
}

func TestReconcilerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newReconcilerMetrics(registry, Config{ServiceName: "pressline", Environment: "test"})

	m.IncPassRun("expiry")
	m.AddProcessed("expiry", 3)
	m.AddProcessed("expiry", 0)
	m.IncPassError("expiry", context.DeadlineExceeded)
	m.IncTransition("expiry", "active", "completed")
	m.SetLastSuccess("expiry", time.Unix(1700000000, 0))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.passRuns.WithLabelValues("expiry")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.processed.WithLabelValues("expiry")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.passErrors.WithLabelValues("expiry", ReasonDeadlineExceeded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("expiry", "active", "completed")))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(m.lastSuccess.WithLabelValues("expiry")))
}

func TestReconcilerMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := newReconcilerMetrics(registry, Config{})
	second := newReconcilerMetrics(registry, Config{})

	first.IncPassRun("payment_deadline")
	second.IncPassRun("payment_deadline")

	require.Equal(t, float64(2), testutil.ToFloat64(first.passRuns.WithLabelValues("payment_deadline")))
}

func TestNilReconcilerMetricsIsSafe(t *testing.T) {
	var m *ReconcilerMetrics
	assert.NotPanics(t, func() {
		m.IncPassRun("expiry")
		m.IncPassError("expiry", errors.New("boom"))
		m.ObserveRunLoopLag(time.Second)
	})
}
