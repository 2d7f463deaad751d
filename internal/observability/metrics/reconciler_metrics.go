package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcilerMetrics captures health of the background reconciliation passes.
type ReconcilerMetrics struct {
	passRuns     *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	passTimeouts *prometheus.CounterVec
	passErrors   *prometheus.CounterVec
	processed    *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	lastSuccess  *prometheus.GaugeVec
	runLoopLag   prometheus.Histogram
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the singleton reconciler metrics registry.
func Reconciler() *ReconcilerMetrics {
	return ReconcilerWithConfig(Config{})
}

// ReconcilerWithConfig returns the singleton registry, creating it with cfg labels on first use.
func ReconcilerWithConfig(cfg Config) *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcilerMetrics
}

// ResetReconcilerMetricsForTest resets the singleton for tests.
func ResetReconcilerMetricsForTest() {
	reconcilerMetricsOnce = sync.Once{}
	reconcilerMetrics = nil
}

func newReconcilerMetrics(registerer prometheus.Registerer, cfg Config) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := cfg.constLabels()

	return &ReconcilerMetrics{
		passRuns: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pressline_reconciler_pass_runs_total",
			Help:        "Reconciler pass runs by pass name.",
			ConstLabels: labels,
		}, []string{"pass"})),
		passDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pressline_reconciler_pass_duration_seconds",
			Help:        "Reconciler pass latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: labels,
		}, []string{"pass"})),
		passTimeouts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pressline_reconciler_pass_timeouts_total",
			Help:        "Reconciler passes that hit their deadline.",
			ConstLabels: labels,
		}, []string{"pass"})),
		passErrors: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pressline_reconciler_pass_errors_total",
			Help:        "Reconciler errors by low-cardinality reason.",
			ConstLabels: labels,
		}, []string{"pass", "reason"})),
		processed: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pressline_reconciler_processed_total",
			Help:        "Subscriptions moved by reconciler passes.",
			ConstLabels: labels,
		}, []string{"pass"})),
		transitions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pressline_subscription_transitions_total",
			Help:        "Subscription status transitions applied by reconciler passes.",
			ConstLabels: labels,
		}, []string{"pass", "from", "to"})),
		lastSuccess: register(registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pressline_reconciler_last_success_timestamp_seconds",
			Help:        "Unix time of the last pass that finished without errors.",
			ConstLabels: labels,
		}, []string{"pass"})),
		runLoopLag: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "pressline_reconciler_runloop_lag_seconds",
			Help:        "Delay of a reconciler tick beyond its scheduled time.",
			Buckets:     []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300, 900, 3600},
			ConstLabels: labels,
		})),
	}
}

func (m *ReconcilerMetrics) IncPassRun(pass string) {
	if m == nil {
		return
	}
	m.passRuns.WithLabelValues(pass).Inc()
}

func (m *ReconcilerMetrics) ObservePassDuration(pass string, d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func (m *ReconcilerMetrics) IncPassTimeout(pass string) {
	if m == nil {
		return
	}
	m.passTimeouts.WithLabelValues(pass).Inc()
}

func (m *ReconcilerMetrics) IncPassError(pass string, err error) {
	if m == nil || err == nil {
		return
	}
	m.passErrors.WithLabelValues(pass, ClassifyReason(err)).Inc()
}

func (m *ReconcilerMetrics) AddProcessed(pass string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.processed.WithLabelValues(pass).Add(float64(count))
}

func (m *ReconcilerMetrics) IncTransition(pass, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(pass, from, to).Inc()
}

func (m *ReconcilerMetrics) SetLastSuccess(pass string, at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.WithLabelValues(pass).Set(float64(at.Unix()))
}

func (m *ReconcilerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}
