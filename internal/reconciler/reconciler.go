// Package reconciler advances subscriptions whose status depends on the
// calendar rather than on an operator action.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/smallbiznis/pressline/internal/delivery/schedule"
	obsmetrics "github.com/smallbiznis/pressline/internal/observability/metrics"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_reconciler_config")

const (
	PassForwardActivation = "forward_activation"
	PassExpiry            = "expiry"
	PassPaymentDeadline   = "payment_deadline"
	PassDueActivation     = "due_activation"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Policy          *config.LifecyclePolicyHolder
	Repo            subscriptiondomain.Repository
	PublicationRepo publicationdomain.Repository
	SubscriptionSvc subscriptiondomain.Service
	Deliveries      *schedule.Generator
	Config          Config `optional:"true"`
}

type Reconciler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	policy          *config.LifecyclePolicyHolder
	repo            subscriptiondomain.Repository
	publicationRepo publicationdomain.Repository
	subscriptionSvc subscriptiondomain.Service
	deliveries      *schedule.Generator
	errs            chan PassError
}

// PassError describes a failure observed during a reconciliation pass.
// SubscriptionID is zero when the pass as a whole failed.
type PassError struct {
	Pass           string
	RunID          string
	SubscriptionID int64
	At             time.Time
	Err            error
}

func (e PassError) Error() string {
	if e.SubscriptionID != 0 {
		return fmt.Sprintf("%s: subscription %d: %v", e.Pass, e.SubscriptionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Pass, e.Err)
}

func (e PassError) Unwrap() error { return e.Err }

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Policy == nil ||
		p.Repo == nil || p.PublicationRepo == nil || p.SubscriptionSvc == nil || p.Deliveries == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			return nil, fmt.Errorf("%w: cron %q: %v", ErrInvalidConfig, cfg.Cron, err)
		}
	}
	return &Reconciler{
		db:              p.DB,
		log:             p.Log.Named("reconciler").With(zap.String("component", "reconciler")),
		cfg:             cfg,
		genID:           p.GenID,
		clock:           p.Clock,
		policy:          p.Policy,
		repo:            p.Repo,
		publicationRepo: p.PublicationRepo,
		subscriptionSvc: p.SubscriptionSvc,
		deliveries:      p.Deliveries,
		errs:            make(chan PassError, cfg.ErrorBuffer),
	}, nil
}

// Errors streams pass and row failures. Reports are dropped while the
// buffer is full.
func (r *Reconciler) Errors() <-chan PassError {
	return r.errs
}

func (r *Reconciler) publish(e PassError) {
	select {
	case r.errs <- e:
	default:
	}
}

func (r *Reconciler) runPass(parent context.Context, name string, fn func(ctx context.Context, run *passRun) error) (err error) {
	start := r.clock.Now()
	ctx, cancel := context.WithTimeout(parent, r.cfg.PassTimeout)
	defer cancel()

	ctx, run := r.newPassRun(ctx, name)
	ctx, span := otel.Tracer("pressline/reconciler").Start(ctx, "reconciler."+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("reconciler.pass", name),
		attribute.String("reconciler.run_id", run.runID),
	)

	passMetrics := obsmetrics.Reconciler()
	passMetrics.IncPassRun(name)
	r.logPassStart(ctx, run)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", obsmetrics.ErrPassPanicked, rec)
		}

		passMetrics.ObservePassDuration(name, r.clock.Now().Sub(start))
		passMetrics.AddProcessed(name, run.processedCount)
		span.SetAttributes(
			attribute.Int("reconciler.processed", run.processedCount),
			attribute.Int("reconciler.errors", run.errorCount),
		)
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		r.logPassFinish(ctx, run)

		if err == nil {
			passMetrics.SetLastSuccess(name, r.clock.Now())
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		passMetrics.IncPassError(name, err)
		r.publish(PassError{Pass: name, RunID: run.runID, At: r.clock.Now(), Err: err})

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			passMetrics.IncPassTimeout(name)
			r.logger(ctx).Warn("reconciler.pass.timeout",
				zap.String("pass", name),
				zap.Duration("timeout", r.cfg.PassTimeout),
				zap.Error(err),
			)
			err = nil
			return
		}
		err = fmt.Errorf("%s: %w", name, err)
	}()

	return fn(ctx, run)
}

// RunOnce executes every enabled pass. A failing pass never prevents the
// next one from running; the failures are joined in the returned error.
func (r *Reconciler) RunOnce(parent context.Context) error {
	passes := []struct {
		name    string
		enabled bool
		run     func(context.Context, *passRun) error
	}{
		{PassForwardActivation, true, r.forwardActivationPass},
		{PassExpiry, true, r.expiryPass},
		{PassPaymentDeadline, true, r.paymentDeadlinePass},
		{PassDueActivation, r.cfg.AutoActivateDue, r.dueActivationPass},
	}

	var err error
	for _, pass := range passes {
		if !pass.enabled {
			continue
		}
		err = errors.Join(err, r.runPass(parent, pass.name, pass.run))
	}
	return err
}

// RunForever runs once immediately and then on every tick until ctx is done.
func (r *Reconciler) RunForever(ctx context.Context) {
	if r.cfg.Cron != "" {
		r.runCron(ctx)
		return
	}

	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := r.clock.Now().Add(r.cfg.RunInterval)

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := r.clock.Now().Sub(nextRun); lag > 0 {
			obsmetrics.Reconciler().ObserveRunLoopLag(lag)
		}
		nextRun = nextRun.Add(r.cfg.RunInterval)
		r.tick(ctx)
	}
}

func (r *Reconciler) runCron(ctx context.Context) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(r.log.Named("cron")))
	c := cron.New(
		cron.WithLocation(r.policy.Get().Location()),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(r.cfg.Cron, func() { r.tick(ctx) }); err != nil {
		r.log.Error("reconciler.cron.invalid", zap.String("cron", r.cfg.Cron), zap.Error(err))
		return
	}

	r.tick(ctx)
	if ctx.Err() != nil {
		return
	}
	c.Start()
	r.log.Info("reconciler.cron.scheduled", zap.String("cron", r.cfg.Cron))

	<-ctx.Done()
	<-c.Stop().Done()
}

func (r *Reconciler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := r.RunOnce(ctx); err != nil {
		r.log.Warn("reconciler run failed", zap.Error(err))
	}
}
