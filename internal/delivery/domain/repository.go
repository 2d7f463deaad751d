package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, deliveries []Delivery) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Delivery, error)
	ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]Delivery, error)
	CountBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, delivery *Delivery, expected Status) (bool, error)
}
