package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/client/domain"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const searchLimit = 50

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Client, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, domain.ErrInvalidName
	}

	series := strings.TrimSpace(req.PassportSeries)
	number := strings.TrimSpace(req.PassportNumber)
	if (series == "") != (number == "") {
		return nil, domain.ErrInvalidPassport
	}

	now := s.clock.Now().UTC()
	client := &domain.Client{
		ID:             s.genID.Generate().Int64(),
		FullName:       fullName,
		Address:        optionalString(req.Address),
		Phone:          optionalString(req.Phone),
		Email:          optionalString(req.Email),
		PassportSeries: optionalString(series),
		PassportNumber: optionalString(number),
		PassportIssuer: optionalString(req.PassportIssuer),
		RegisteredAt:   now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if series != "" {
			existing, err := s.repo.FindByPassport(ctx, tx, series, number)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrDuplicatePassport
			}
		}
		if err := s.repo.Insert(ctx, tx, client); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicatePassport
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("client registered", zap.Int64("client_id", client.ID))
	return client, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Client, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, clientID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Search(ctx context.Context, name string) ([]domain.Client, error) {
	return s.repo.Search(ctx, s.db, strings.ToLower(strings.TrimSpace(name)), searchLimit)
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
