package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/publication/domain"
	"github.com/smallbiznis/pressline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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
		log:   p.Log.Named("publication.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	category := &domain.Category{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertCategory(ctx, s.db, category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, s.db)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Publication, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if !req.Periodicity.Valid() {
		return nil, domain.ErrInvalidPeriodicity
	}
	if !req.MonthlyPrice.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	var categoryID *int64
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		value := id.Int64()
		categoryID = &value
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	now := s.clock.Now().UTC()
	publication := &domain.Publication{
		ID:           s.genID.Generate().Int64(),
		CategoryID:   categoryID,
		Title:        title,
		ISSN:         optionalString(req.ISSN),
		Publisher:    optionalString(req.Publisher),
		Description:  optionalString(req.Description),
		Periodicity:  req.Periodicity,
		MonthlyPrice: req.MonthlyPrice.Round(2),
		IsAvailable:  available,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, publication); err != nil {
		return nil, err
	}

	s.log.Info("publication created",
		zap.Int64("publication_id", publication.ID),
		zap.String("periodicity", string(publication.Periodicity)),
	)
	return publication, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Publication, error) {
	publicationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, publicationID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, onlyAvailable bool) ([]domain.Publication, error) {
	return s.repo.List(ctx, s.db, onlyAvailable)
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) error {
	publicationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}
	updated, err := s.repo.UpdateAvailability(ctx, s.db, publicationID.Int64(), available, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, req domain.CreateServiceRequest) (*domain.AdditionalService, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	service := &domain.AdditionalService{
		ID:          s.genID.Generate().Int64(),
		Name:        name,
		Description: optionalString(req.Description),
		Price:       req.Price.Round(2),
		IsActive:    true,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.InsertService(ctx, s.db, service); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	return service, nil
}

func (s *Service) ListServices(ctx context.Context) ([]domain.AdditionalService, error) {
	return s.repo.ListServices(ctx, s.db, true)
}

// Quote prices a prospective subscription: the discounted publication cost
// plus the flat price of each selected additional service.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if req.PeriodMonths <= 0 {
		return nil, domain.ErrInvalidPeriod
	}
	publication, err := s.Get(ctx, req.PublicationID)
	if err != nil {
		return nil, err
	}

	serviceIDs, err := ParseIDs(req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	services, err := s.repo.FindServicesByIDs(ctx, s.db, serviceIDs)
	if err != nil {
		return nil, err
	}
	if len(services) != len(serviceIDs) {
		return nil, domain.ErrServiceNotFound
	}

	servicesCost := decimal.Zero
	for _, svc := range services {
		if !svc.IsActive {
			return nil, domain.ErrServiceNotFound
		}
		servicesCost = servicesCost.Add(svc.Price)
	}

	cost := publication.PriceForPeriod(req.PeriodMonths)
	return &domain.Quote{
		PublicationID:    publication.ID,
		PeriodMonths:     req.PeriodMonths,
		MonthlyPrice:     publication.MonthlyPrice,
		DiscountFactor:   domain.DiscountFactor(req.PeriodMonths),
		SubscriptionCost: cost,
		ServicesCost:     servicesCost,
		Total:            cost.Add(servicesCost),
	}, nil
}

// ParseIDs parses snowflake ids, dropping duplicates while keeping order.
func ParseIDs(raw []string) ([]int64, error) {
	seen := make(map[int64]struct{}, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		if _, ok := seen[id.Int64()]; ok {
			continue
		}
		seen[id.Int64()] = struct{}{}
		ids = append(ids, id.Int64())
	}
	return ids, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
