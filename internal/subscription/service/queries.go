package service

import (
	"context"

	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	paymentdomain "github.com/smallbiznis/pressline/internal/payment/domain"
	"github.com/smallbiznis/pressline/internal/subscription/domain"
)

func (s *Service) Get(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	id, err := parseID(subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.loadSubscription(ctx, s.db, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Subscription, error) {
	id, err := parseID(clientID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByClient(ctx, s.db, id)
}

// ListActive returns active subscriptions whose actual period has not ended.
func (s *Service) ListActive(ctx context.Context) ([]domain.Subscription, error) {
	_, today, _ := s.now()
	return s.repo.ListActiveOn(ctx, s.db, today)
}

// ListAwaitingPayment returns subscriptions that can still be paid today.
func (s *Service) ListAwaitingPayment(ctx context.Context) ([]domain.Subscription, error) {
	_, today, _ := s.now()
	return s.repo.ListAwaitingPaymentOn(ctx, s.db, today)
}

func (s *Service) ListPayments(ctx context.Context, subscriptionID string) ([]paymentdomain.Payment, error) {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.ListBySubscription(ctx, s.db, sub.ID)
}

func (s *Service) ListDeliveries(ctx context.Context, subscriptionID string) ([]deliverydomain.Delivery, error) {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.deliveryRepo.ListBySubscription(ctx, s.db, sub.ID)
}

func (s *Service) ListServices(ctx context.Context, subscriptionID string) ([]domain.ServiceLink, error) {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListServiceLinks(ctx, s.db, sub.ID)
}
