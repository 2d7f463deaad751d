package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	ListCategories(ctx context.Context, db *gorm.DB) ([]Category, error)

	Insert(ctx context.Context, db *gorm.DB, publication *Publication) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Publication, error)
	List(ctx context.Context, db *gorm.DB, onlyAvailable bool) ([]Publication, error)
	UpdateAvailability(ctx context.Context, db *gorm.DB, id int64, available bool, at time.Time) (bool, error)

	InsertService(ctx context.Context, db *gorm.DB, service *AdditionalService) error
	FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]AdditionalService, error)
	ListServices(ctx context.Context, db *gorm.DB, onlyActive bool) ([]AdditionalService, error)
}
