package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/smallbiznis/pressline/internal/delivery/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_delivery_generator_config")

type Params struct {
	fx.In

	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.LifecyclePolicyHolder
	Repo   domain.Repository
}

// Generator expands an activated subscription window into delivery rows.
type Generator struct {
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.LifecyclePolicyHolder
	repo   domain.Repository
}

func New(p Params) (*Generator, error) {
	if p.GenID == nil || p.Clock == nil || p.Repo == nil {
		return nil, ErrInvalidConfig
	}
	return &Generator{
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}, nil
}

// Window is the covered period of a subscription.
type Window struct {
	SubscriptionID int64
	Start          time.Time
	End            time.Time
	Periodicity    publicationdomain.Periodicity
}

// IssueDate returns the date of the k-th issue (k from 0) counted from start.
// Each date is derived from start directly, so month-end starts never drift.
func IssueDate(start time.Time, periodicity publicationdomain.Periodicity, k int) time.Time {
	switch periodicity.OrDefault() {
	case publicationdomain.PeriodicityDaily:
		return clock.AddDays(start, k)
	case publicationdomain.PeriodicityWeekly:
		return clock.AddDays(start, 7*k)
	case publicationdomain.PeriodicityQuarterly:
		return clock.AddMonths(start, 3*k)
	default:
		return clock.AddMonths(start, k)
	}
}

// Generate plans every issue in [start, end] without persisting anything.
func (g *Generator) Generate(w Window) ([]domain.Delivery, error) {
	if w.SubscriptionID == 0 || w.Start.IsZero() || w.End.IsZero() {
		return nil, domain.ErrInvalidWindow
	}
	start := clock.Date(w.Start)
	end := clock.Date(w.End)
	lag := g.policy.Get().CarrierLagDays
	now := g.clock.Now().UTC()

	var deliveries []domain.Delivery
	for k := 0; ; k++ {
		issue := IssueDate(start, w.Periodicity, k)
		if issue.After(end) {
			break
		}
		deliveries = append(deliveries, domain.Delivery{
			ID:                   g.genID.Generate().Int64(),
			SubscriptionID:       w.SubscriptionID,
			IssueNumber:          k + 1,
			IssueDate:            issue,
			ExpectedDeliveryDate: clock.AddDays(issue, lag),
			Status:               domain.StatusScheduled,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}
	return deliveries, nil
}

// Schedule generates and stores the deliveries for w using db, which is
// normally the transaction that activated the subscription. A subscription
// that already has deliveries is left untouched and nil is returned.
func (g *Generator) Schedule(ctx context.Context, db *gorm.DB, w Window) ([]domain.Delivery, error) {
	deliveries, err := g.Generate(w)
	if err != nil {
		return nil, err
	}
	existing, err := g.repo.CountBySubscription(ctx, db, w.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, nil
	}
	if err := g.repo.InsertBatch(ctx, db, deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}
