package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Periodicity is how often a publication issues.
type Periodicity string

const (
	PeriodicityDaily     Periodicity = "daily"
	PeriodicityWeekly    Periodicity = "weekly"
	PeriodicityMonthly   Periodicity = "monthly"
	PeriodicityQuarterly Periodicity = "quarterly"
)

func (p Periodicity) Valid() bool {
	switch p {
	case PeriodicityDaily, PeriodicityWeekly, PeriodicityMonthly, PeriodicityQuarterly:
		return true
	default:
		return false
	}
}

// OrDefault falls back to monthly for unknown or empty values.
func (p Periodicity) OrDefault() Periodicity {
	if p.Valid() {
		return p
	}
	return PeriodicityMonthly
}

type Category struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:ux_categories_name"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

type Publication struct {
	ID           int64             `json:"id,string" gorm:"primaryKey"`
	CategoryID   *int64            `json:"category_id,omitempty" gorm:"index"`
	Title        string            `json:"title" gorm:"type:text;not null"`
	ISSN         *string           `json:"issn,omitempty" gorm:"type:text"`
	Publisher    *string           `json:"publisher,omitempty" gorm:"type:text"`
	Description  *string           `json:"description,omitempty" gorm:"type:text"`
	Periodicity  Periodicity       `json:"periodicity" gorm:"type:varchar(32);not null"`
	MonthlyPrice decimal.Decimal   `json:"monthly_price" gorm:"type:numeric(12,2);not null"`
	IsAvailable  bool              `json:"is_available" gorm:"not null"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null"`
}

func (Publication) TableName() string { return "publications" }

// PriceForPeriod is the discounted price of a subscription lasting months.
func (p Publication) PriceForPeriod(months int) decimal.Decimal {
	return CalculatePrice(p.MonthlyPrice, months)
}

// AdditionalService is an optional extra sold alongside a subscription.
type AdditionalService struct {
	ID          int64           `json:"id,string" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:ux_additional_services_name"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (AdditionalService) TableName() string { return "additional_services" }
