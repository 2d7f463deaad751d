package reconciler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/pressline/internal/observability/context"
	obslogger "github.com/smallbiznis/pressline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pressline/internal/observability/metrics"
	"go.uber.org/zap"
)

type passRun struct {
	pass           string
	runID          string
	batchSize      int
	startedAt      time.Time
	processedCount int
	skippedCount   int
	errorCount     int
}

func (r *passRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *passRun) IncSkipped() {
	if r == nil {
		return
	}
	r.skippedCount++
}

func (r *passRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (r *Reconciler) newPassRun(ctx context.Context, pass string) (context.Context, *passRun) {
	run := &passRun{
		pass:      pass,
		runID:     r.genID.Generate().String(),
		batchSize: r.cfg.BatchSize,
		startedAt: time.Now(),
	}
	ctx = obscontext.WithActor(ctx, "system", "reconciler")
	return ctx, run
}

func (r *Reconciler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, r.log)
}

func (r *Reconciler) logPassStart(ctx context.Context, run *passRun) {
	r.logger(ctx).Info("reconciler.pass.start",
		zap.String("pass", run.pass),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (r *Reconciler) logPassFinish(ctx context.Context, run *passRun) {
	fields := []zap.Field{
		zap.String("pass", run.pass),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("skipped_count", run.skippedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := r.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("reconciler.pass.finish", fields...)
		return
	}
	log.Info("reconciler.pass.finish", fields...)
}

// reportRowError records a failure on one subscription without stopping the pass.
func (r *Reconciler) reportRowError(ctx context.Context, run *passRun, subscriptionID int64, err error) {
	run.IncError()
	obsmetrics.Reconciler().IncPassError(run.pass, err)
	r.logger(ctx).Error("reconciler.subscription.failed",
		zap.String("pass", run.pass),
		zap.String("run_id", run.runID),
		zap.Int64("subscription_id", subscriptionID),
		zap.String("reason", obsmetrics.ClassifyReason(err)),
		zap.Error(err),
	)
	r.publish(PassError{
		Pass:           run.pass,
		RunID:          run.runID,
		SubscriptionID: subscriptionID,
		At:             r.clock.Now(),
		Err:            err,
	})
}
