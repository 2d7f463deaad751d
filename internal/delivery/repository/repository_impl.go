package repository

import (
	"context"

	"github.com/smallbiznis/pressline/internal/delivery/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const deliveryColumns = `id, subscription_id, issue_number, issue_date, expected_delivery_date, status, sent_at, delivered_at, note, created_at, updated_at`

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, deliveries []domain.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(deliveries, 200).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Delivery, error) {
	var d domain.Delivery
	err := db.WithContext(ctx).Raw(
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]domain.Delivery, error) {
	var items []domain.Delivery
	err := db.WithContext(ctx).Raw(
		`SELECT `+deliveryColumns+` FROM deliveries WHERE subscription_id = ? ORDER BY issue_number ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM deliveries WHERE subscription_id = ?`,
		subscriptionID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, delivery *domain.Delivery, expected domain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET status = ?, sent_at = ?, delivered_at = ?, note = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		delivery.Status,
		delivery.SentAt,
		delivery.DeliveredAt,
		delivery.Note,
		delivery.UpdatedAt,
		delivery.ID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
