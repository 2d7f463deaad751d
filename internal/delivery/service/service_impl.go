package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/delivery/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("delivery.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// UpdateStatus records carrier progress for a single delivery.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Delivery, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.DeliveryID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Delivery
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByID(ctx, tx, id.Int64())
		if err != nil {
			return err
		}
		if delivery == nil {
			return domain.ErrNotFound
		}
		if !domain.CanTransition(delivery.Status, req.Status) {
			return domain.ErrInvalidTransition
		}

		previous := delivery.Status
		now := s.clock.Now().UTC()
		delivery.Status = req.Status
		delivery.UpdatedAt = now
		switch req.Status {
		case domain.StatusSent:
			delivery.SentAt = &now
		case domain.StatusDelivered:
			delivery.DeliveredAt = &now
		}
		if note := strings.TrimSpace(req.Note); note != "" {
			delivery.Note = &note
		}

		ok, err := s.repo.UpdateStatus(ctx, tx, delivery, previous)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		updated = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("delivery status updated",
		zap.Int64("delivery_id", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}
