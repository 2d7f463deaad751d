package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Payment, error)
	ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]Payment, error)
	ReceiptExists(ctx context.Context, db *gorm.DB, receiptNumber string) (bool, error)
	// UpdateProcessing persists status, operator and processed time only when
	// the stored status still equals expected.
	UpdateProcessing(ctx context.Context, db *gorm.DB, payment *Payment, expected Status) (bool, error)
}
