package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/pressline/internal/client/domain"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	"github.com/smallbiznis/pressline/internal/delivery/schedule"
	paymentdomain "github.com/smallbiznis/pressline/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	"github.com/smallbiznis/pressline/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Policy          *config.LifecyclePolicyHolder
	Repo            domain.Repository
	PaymentRepo     paymentdomain.Repository
	DeliveryRepo    deliverydomain.Repository
	PublicationRepo publicationdomain.Repository
	ClientRepo      clientdomain.Repository
	Deliveries      *schedule.Generator
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	policy          *config.LifecyclePolicyHolder
	repo            domain.Repository
	paymentRepo     paymentdomain.Repository
	deliveryRepo    deliverydomain.Repository
	publicationRepo publicationdomain.Repository
	clientRepo      clientdomain.Repository
	deliveries      *schedule.Generator

	overdueBatchSize int
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("subscription.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		policy:          p.Policy,
		repo:            p.Repo,
		paymentRepo:     p.PaymentRepo,
		deliveryRepo:    p.DeliveryRepo,
		publicationRepo: p.PublicationRepo,
		clientRepo:      p.ClientRepo,
		deliveries:      p.Deliveries,

		overdueBatchSize: overdueBatchLimit,
	}
}

// now returns the current instant and the civil date it falls on.
func (s *Service) now() (time.Time, time.Time, config.LifecyclePolicy) {
	policy := s.policy.Get()
	now := s.clock.Now()
	return now.UTC(), clock.DateIn(now, policy.Location()), policy
}

func (s *Service) CreateSubscription(ctx context.Context, req domain.CreateRequest) (*domain.Subscription, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return nil, err
	}
	publicationID, err := parseID(req.PublicationID)
	if err != nil {
		return nil, err
	}
	if req.PeriodMonths <= 0 {
		return nil, domain.ErrInvalidPeriod
	}
	if req.PlannedStartDate.IsZero() {
		return nil, domain.ErrInvalidStartDate
	}
	if req.TotalPrice.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	serviceIDs, err := parseIDs(req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	now, today, policy := s.now()
	start := clock.Date(req.PlannedStartDate)
	deadline := clock.AddDays(today, policy.PaymentWindowDays)

	var created *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		publication, err := s.loadAvailablePublication(ctx, tx, publicationID)
		if err != nil {
			return err
		}
		client, err := s.clientRepo.FindByID(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrClientNotFound
		}
		services, err := s.loadServices(ctx, tx, serviceIDs)
		if err != nil {
			return err
		}

		sub := &domain.Subscription{
			ID:               s.genID.Generate().Int64(),
			ClientID:         clientID,
			PublicationID:    publicationID,
			PeriodMonths:     req.PeriodMonths,
			MonthlyPrice:     publication.MonthlyPrice,
			TotalPrice:       req.TotalPrice.Round(2),
			Status:           domain.StatusCreated,
			PlannedStartDate: &start,
			PaymentDeadline:  &deadline,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if req.Metadata != nil {
			sub.Metadata = datatypes.JSONMap(req.Metadata)
		}
		sub.CalculateDates()
		if err := sub.TransitionTo(domain.StatusAwaitingPayment, now); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.repo.InsertServiceLinks(ctx, tx, s.serviceLinks(sub, services, now)); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.Int64("subscription_id", created.ID),
		zap.Int64("client_id", created.ClientID),
		zap.Int64("publication_id", created.PublicationID),
		zap.Int("period_months", created.PeriodMonths),
		zap.Time("payment_deadline", *created.PaymentDeadline),
	)
	return created, nil
}

// UpdateSubscription changes period, start, price or services while payment is still pending.
func (s *Service) UpdateSubscription(ctx context.Context, req domain.UpdateRequest) (*domain.Subscription, error) {
	id, err := parseID(req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if req.PeriodMonths != nil && *req.PeriodMonths <= 0 {
		return nil, domain.ErrInvalidPeriod
	}
	if req.PlannedStartDate != nil && req.PlannedStartDate.IsZero() {
		return nil, domain.ErrInvalidStartDate
	}
	if req.TotalPrice != nil && req.TotalPrice.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	var serviceIDs []int64
	if req.ServiceIDs != nil {
		if serviceIDs, err = parseIDs(*req.ServiceIDs); err != nil {
			return nil, err
		}
	}

	now, _, _ := s.now()
	var updated *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.loadSubscription(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status != domain.StatusAwaitingPayment {
			return domain.ErrNotAwaitingPayment
		}

		publication, err := s.loadAvailablePublication(ctx, tx, sub.PublicationID)
		if err != nil {
			return err
		}
		sub.MonthlyPrice = publication.MonthlyPrice
		if req.PeriodMonths != nil {
			sub.PeriodMonths = *req.PeriodMonths
		}
		if req.PlannedStartDate != nil {
			start := clock.Date(*req.PlannedStartDate)
			sub.PlannedStartDate = &start
		}
		if req.TotalPrice != nil {
			sub.TotalPrice = req.TotalPrice.Round(2)
		}
		sub.CalculateDates()
		sub.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}

		if req.ServiceIDs != nil {
			services, err := s.loadServices(ctx, tx, serviceIDs)
			if err != nil {
				return err
			}
			if err := s.repo.DeleteServiceLinks(ctx, tx, sub.ID); err != nil {
				return err
			}
			if err := s.repo.InsertServiceLinks(ctx, tx, s.serviceLinks(sub, services, now)); err != nil {
				return err
			}
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription updated", zap.Int64("subscription_id", updated.ID))
	return updated, nil
}

// ActivateSubscription starts a fully paid subscription whose actual start
// has arrived and schedules its deliveries in the same transaction.
func (s *Service) ActivateSubscription(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	id, err := parseID(subscriptionID)
	if err != nil {
		return nil, err
	}

	now, today, _ := s.now()
	var activated *domain.Subscription
	var scheduled int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.loadSubscription(ctx, tx, id)
		if err != nil {
			return err
		}
		if reason := sub.ActivationBlocker(today); reason != "" {
			return &domain.NotActivatableError{Reason: reason}
		}

		periodicity, err := s.periodicityOf(ctx, tx, sub.PublicationID)
		if err != nil {
			return err
		}
		if err := sub.TransitionTo(domain.StatusActive, now); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}

		deliveries, err := s.deliveries.Schedule(ctx, tx, schedule.Window{
			SubscriptionID: sub.ID,
			Start:          *sub.ActualStartDate,
			End:            *sub.ActualEndDate,
			Periodicity:    periodicity,
		})
		if err != nil {
			return err
		}
		scheduled = len(deliveries)
		activated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription activated",
		zap.Int64("subscription_id", activated.ID),
		zap.Int("deliveries_scheduled", scheduled),
	)
	return activated, nil
}

// CancelOverduePayments cancels unpaid subscriptions whose deadline is more
// than the grace period in the past. Each subscription is cancelled on its
// own; a failure on one does not stop the rest.
func (s *Service) CancelOverduePayments(ctx context.Context) (int, error) {
	now, today, policy := s.now()
	cutoff := clock.AddDays(today, -policy.OverdueGraceDays)

	cancelled := 0
	var errs error
	var cursor int64
	for {
		candidates, err := s.repo.ListUnpaidDeadlineBefore(ctx, s.db, cutoff, cursor, s.overdueBatchSize)
		if err != nil {
			return cancelled, errors.Join(errs, err)
		}
		for i := range candidates {
			sub := &candidates[i]
			cursor = sub.ID
			if err := sub.TransitionTo(domain.StatusCancelled, now); err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			if err := s.repo.Update(ctx, s.db, sub); err != nil {
				if errors.Is(err, domain.ErrConcurrentUpdate) {
					continue
				}
				s.log.Warn("cancel overdue subscription failed", zap.Int64("subscription_id", sub.ID), zap.Error(err))
				errs = errors.Join(errs, err)
				continue
			}
			cancelled++
		}
		if len(candidates) < s.overdueBatchSize {
			break
		}
	}

	if cancelled > 0 {
		s.log.Info("overdue subscriptions cancelled", zap.Int("count", cancelled), zap.Time("cutoff", cutoff))
	}
	return cancelled, errs
}

const overdueBatchLimit = 1000

func (s *Service) loadSubscription(ctx context.Context, tx *gorm.DB, id int64) (*domain.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *Service) loadAvailablePublication(ctx context.Context, tx *gorm.DB, id int64) (*publicationdomain.Publication, error) {
	publication, err := s.publicationRepo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if publication == nil {
		return nil, domain.ErrPublicationNotFound
	}
	if !publication.IsAvailable {
		return nil, domain.ErrPublicationUnavailable
	}
	return publication, nil
}

func (s *Service) periodicityOf(ctx context.Context, tx *gorm.DB, publicationID int64) (publicationdomain.Periodicity, error) {
	publication, err := s.publicationRepo.FindByID(ctx, tx, publicationID)
	if err != nil {
		return "", err
	}
	if publication == nil {
		return publicationdomain.PeriodicityMonthly, nil
	}
	return publication.Periodicity.OrDefault(), nil
}

func (s *Service) loadServices(ctx context.Context, tx *gorm.DB, ids []int64) ([]publicationdomain.AdditionalService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	services, err := s.publicationRepo.FindServicesByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(services) != len(ids) {
		return nil, domain.ErrServiceNotFound
	}
	for _, svc := range services {
		if !svc.IsActive {
			return nil, domain.ErrServiceNotFound
		}
	}
	return services, nil
}

func (s *Service) serviceLinks(sub *domain.Subscription, services []publicationdomain.AdditionalService, now time.Time) []domain.ServiceLink {
	links := make([]domain.ServiceLink, 0, len(services))
	for _, svc := range services {
		links = append(links, domain.ServiceLink{
			ID:             s.genID.Generate().Int64(),
			SubscriptionID: sub.ID,
			ServiceID:      svc.ID,
			Price:          svc.Price,
			StartDate:      sub.PlannedStartDate,
			EndDate:        sub.PlannedEndDate,
			CreatedAt:      now,
		})
	}
	return links
}

func parseID(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func parseIDs(raw []string) ([]int64, error) {
	seen := make(map[int64]struct{}, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
