package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Service interface {
	CreateCategory(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	Create(ctx context.Context, req CreateRequest) (*Publication, error)
	Get(ctx context.Context, id string) (*Publication, error)
	List(ctx context.Context, onlyAvailable bool) ([]Publication, error)
	SetAvailability(ctx context.Context, id string, available bool) error

	CreateService(ctx context.Context, req CreateServiceRequest) (*AdditionalService, error)
	ListServices(ctx context.Context) ([]AdditionalService, error)

	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type CreateRequest struct {
	CategoryID   string          `json:"category_id"`
	Title        string          `json:"title"`
	ISSN         string          `json:"issn"`
	Publisher    string          `json:"publisher"`
	Description  string          `json:"description"`
	Periodicity  Periodicity     `json:"periodicity"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	IsAvailable  *bool           `json:"is_available"`
}

type CreateServiceRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type QuoteRequest struct {
	PublicationID string   `json:"publication_id"`
	PeriodMonths  int      `json:"period_months"`
	ServiceIDs    []string `json:"service_ids"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPeriodicity = errors.New("invalid_periodicity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrNotFound           = errors.New("publication_not_found")
	ErrCategoryNotFound   = errors.New("category_not_found")
	ErrServiceNotFound    = errors.New("additional_service_not_found")
	ErrDuplicateName      = errors.New("duplicate_name")
)
