package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Subscription, error)
	// Update writes every mutable column when the stored version still equals
	// subscription.Version, then bumps the version. A lost race returns ErrConcurrentUpdate.
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error

	ListByClient(ctx context.Context, db *gorm.DB, clientID int64) ([]Subscription, error)
	ListActiveOn(ctx context.Context, db *gorm.DB, today time.Time) ([]Subscription, error)
	ListAwaitingPaymentOn(ctx context.Context, db *gorm.DB, today time.Time) ([]Subscription, error)

	// Reconciliation candidate queries page by id: each returns at most limit
	// rows with id > afterID in ascending id order.
	ListUnpaidDeadlineBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, afterID int64, limit int) ([]Subscription, error)
	ListActiveEndedBefore(ctx context.Context, db *gorm.DB, today time.Time, afterID int64, limit int) ([]Subscription, error)
	ListPaidPlannedBetween(ctx context.Context, db *gorm.DB, from, to time.Time, afterID int64, limit int) ([]Subscription, error)
	ListDueForActivation(ctx context.Context, db *gorm.DB, today time.Time, afterID int64, limit int) ([]Subscription, error)

	InsertServiceLinks(ctx context.Context, db *gorm.DB, links []ServiceLink) error
	DeleteServiceLinks(ctx context.Context, db *gorm.DB, subscriptionID int64) error
	ListServiceLinks(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]ServiceLink, error)
}
