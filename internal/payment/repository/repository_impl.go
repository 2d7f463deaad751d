package repository

import (
	"context"

	"github.com/smallbiznis/pressline/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentColumns = `id, subscription_id, amount, method, status, receipt_number, bank_transaction_id, operator_id, submitted_at, processed_at, metadata, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE subscription_id = ? ORDER BY submitted_at ASC, id ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReceiptExists(ctx context.Context, db *gorm.DB, receiptNumber string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM payments WHERE receipt_number = ?`,
		receiptNumber,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) UpdateProcessing(ctx context.Context, db *gorm.DB, payment *domain.Payment, expected domain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, operator_id = ?, processed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		payment.Status,
		payment.OperatorID,
		payment.ProcessedAt,
		payment.UpdatedAt,
		payment.ID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
