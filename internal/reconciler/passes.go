package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/delivery/schedule"
	obsmetrics "github.com/smallbiznis/pressline/internal/observability/metrics"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errNoLongerEligible marks a candidate that changed between listing and locking.
var errNoLongerEligible = errors.New("no_longer_eligible")

type candidateFetcher func(ctx context.Context, today time.Time, afterID int64, limit int) ([]subscriptiondomain.Subscription, error)

type rowHandler func(ctx context.Context, run *passRun, sub subscriptiondomain.Subscription, today time.Time) error

func (r *Reconciler) today() time.Time {
	return clock.Today(r.clock, r.policy.Get().Location())
}

// forwardActivationPass activates paid subscriptions planned for next month
// once the current month is past the configured day.
func (r *Reconciler) forwardActivationPass(ctx context.Context, run *passRun) error {
	today := r.today()
	threshold := r.policy.Get().ForwardActivationDay
	if today.Day() <= threshold {
		r.logger(ctx).Debug("reconciler.pass.skipped",
			zap.String("pass", run.pass),
			zap.Int("day", today.Day()),
			zap.Int("forward_activation_day", threshold),
		)
		return nil
	}

	from := clock.FirstOfNextMonth(today)
	to := clock.AddMonths(from, 1)
	fetch := func(ctx context.Context, _ time.Time, afterID int64, limit int) ([]subscriptiondomain.Subscription, error) {
		return r.repo.ListPaidPlannedBetween(ctx, r.db, from, to, afterID, limit)
	}
	return r.processBatches(ctx, run, today, fetch, r.forwardActivate)
}

func (r *Reconciler) forwardActivate(ctx context.Context, run *passRun, candidate subscriptiondomain.Subscription, today time.Time) error {
	now := r.clock.Now().UTC()
	scheduled := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := r.reload(ctx, tx, candidate.ID)
		if err != nil {
			return err
		}
		if sub.Status != subscriptiondomain.StatusPaid || sub.ActualStartDate != nil || sub.PlannedStartDate == nil {
			return errNoLongerEligible
		}

		sub.SetActualPeriod(*sub.PlannedStartDate)
		if err := sub.TransitionTo(subscriptiondomain.StatusActive, now); err != nil {
			return err
		}
		if err := r.repo.Update(ctx, tx, sub); err != nil {
			return err
		}

		periodicity := publicationdomain.PeriodicityMonthly
		publication, err := r.publicationRepo.FindByID(ctx, tx, sub.PublicationID)
		if err != nil {
			return err
		}
		if publication != nil {
			periodicity = publication.Periodicity.OrDefault()
		}
		deliveries, err := r.deliveries.Schedule(ctx, tx, schedule.Window{
			SubscriptionID: sub.ID,
			Start:          *sub.ActualStartDate,
			End:            *sub.ActualEndDate,
			Periodicity:    periodicity,
		})
		if err != nil {
			return err
		}
		scheduled = len(deliveries)
		return nil
	})
	if err != nil {
		return err
	}

	r.recordTransition(ctx, run, candidate.ID, subscriptiondomain.StatusPaid, subscriptiondomain.StatusActive,
		zap.Int("deliveries_scheduled", scheduled))
	return nil
}

// expiryPass completes active subscriptions whose period ended before today.
func (r *Reconciler) expiryPass(ctx context.Context, run *passRun) error {
	fetch := func(ctx context.Context, today time.Time, afterID int64, limit int) ([]subscriptiondomain.Subscription, error) {
		return r.repo.ListActiveEndedBefore(ctx, r.db, today, afterID, limit)
	}
	return r.processBatches(ctx, run, r.today(), fetch, func(ctx context.Context, run *passRun, candidate subscriptiondomain.Subscription, today time.Time) error {
		return r.transition(ctx, run, candidate.ID, subscriptiondomain.StatusCompleted, func(sub *subscriptiondomain.Subscription) bool {
			return sub.Status == subscriptiondomain.StatusActive &&
				sub.ActualEndDate != nil && sub.ActualEndDate.Before(today)
		})
	})
}

// paymentDeadlinePass cancels unpaid subscriptions whose deadline is before today.
func (r *Reconciler) paymentDeadlinePass(ctx context.Context, run *passRun) error {
	fetch := func(ctx context.Context, today time.Time, afterID int64, limit int) ([]subscriptiondomain.Subscription, error) {
		return r.repo.ListUnpaidDeadlineBefore(ctx, r.db, today, afterID, limit)
	}
	return r.processBatches(ctx, run, r.today(), fetch, func(ctx context.Context, run *passRun, candidate subscriptiondomain.Subscription, today time.Time) error {
		return r.transition(ctx, run, candidate.ID, subscriptiondomain.StatusCancelled, func(sub *subscriptiondomain.Subscription) bool {
			return sub.Status == subscriptiondomain.StatusAwaitingPayment && !sub.IsFullyPaid &&
				sub.PaymentDeadline != nil && sub.PaymentDeadline.Before(today)
		})
	})
}

// dueActivationPass activates paid subscriptions whose actual start has arrived.
func (r *Reconciler) dueActivationPass(ctx context.Context, run *passRun) error {
	fetch := func(ctx context.Context, today time.Time, afterID int64, limit int) ([]subscriptiondomain.Subscription, error) {
		return r.repo.ListDueForActivation(ctx, r.db, today, afterID, limit)
	}
	return r.processBatches(ctx, run, r.today(), fetch, func(ctx context.Context, run *passRun, candidate subscriptiondomain.Subscription, _ time.Time) error {
		if _, err := r.subscriptionSvc.ActivateSubscription(ctx, snowflake.ID(candidate.ID).String()); err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotActivatable) {
				return errNoLongerEligible
			}
			return err
		}
		r.recordTransition(ctx, run, candidate.ID, subscriptiondomain.StatusPaid, subscriptiondomain.StatusActive)
		return nil
	})
}

// processBatches pages through candidates by id and feeds each to handle
// until a page comes back short. Rows behind the cursor are never refetched,
// so failing rows cannot starve the ones after them. Row failures are
// reported and never abort the pass.
func (r *Reconciler) processBatches(ctx context.Context, run *passRun, today time.Time, fetch candidateFetcher, handle rowHandler) error {
	var cursor int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, err := fetch(ctx, today, cursor, r.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return err
			}
			if candidate.ID > cursor {
				cursor = candidate.ID
			}
			err := handle(ctx, run, candidate, today)
			switch {
			case err == nil:
			case errors.Is(err, errNoLongerEligible), errors.Is(err, subscriptiondomain.ErrConcurrentUpdate):
				run.IncSkipped()
			default:
				r.reportRowError(ctx, run, candidate.ID, err)
			}
		}

		if len(candidates) < r.cfg.BatchSize {
			return nil
		}
	}
}

// transition reloads the subscription inside its own transaction, re-checks
// eligible and moves it to target.
func (r *Reconciler) transition(
	ctx context.Context,
	run *passRun,
	id int64,
	target subscriptiondomain.SubscriptionStatus,
	eligible func(*subscriptiondomain.Subscription) bool,
) error {
	now := r.clock.Now().UTC()
	var from subscriptiondomain.SubscriptionStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := r.reload(ctx, tx, id)
		if err != nil {
			return err
		}
		if !eligible(sub) {
			return errNoLongerEligible
		}
		from = sub.Status
		if err := sub.TransitionTo(target, now); err != nil {
			return err
		}
		return r.repo.Update(ctx, tx, sub)
	})
	if err != nil {
		return err
	}
	r.recordTransition(ctx, run, id, from, target)
	return nil
}

func (r *Reconciler) reload(ctx context.Context, tx *gorm.DB, id int64) (*subscriptiondomain.Subscription, error) {
	sub, err := r.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errNoLongerEligible
	}
	return sub, nil
}

func (r *Reconciler) recordTransition(
	ctx context.Context,
	run *passRun,
	id int64,
	from, to subscriptiondomain.SubscriptionStatus,
	fields ...zap.Field,
) {
	run.AddProcessed(1)
	obsmetrics.Reconciler().IncTransition(run.pass, string(from), string(to))
	r.logger(ctx).Info("reconciler.subscription.transitioned", append([]zap.Field{
		zap.String("pass", run.pass),
		zap.String("run_id", run.runID),
		zap.Int64("subscription_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	}, fields...)...)
}
