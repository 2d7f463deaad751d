package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pressline/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, client_id, publication_id, period_months, monthly_price, total_price, status,
	is_fully_paid, paid_at, planned_start_date, planned_end_date, actual_start_date, actual_end_date,
	payment_deadline, activated_at, completed_at, cancelled_at, version, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *domain.Subscription) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET
			period_months = ?, monthly_price = ?, total_price = ?, status = ?, is_fully_paid = ?,
			paid_at = ?, planned_start_date = ?, planned_end_date = ?, actual_start_date = ?,
			actual_end_date = ?, payment_deadline = ?, activated_at = ?, completed_at = ?,
			cancelled_at = ?, metadata = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		s.PeriodMonths,
		s.MonthlyPrice,
		s.TotalPrice,
		s.Status,
		s.IsFullyPaid,
		s.PaidAt,
		s.PlannedStartDate,
		s.PlannedEndDate,
		s.ActualStartDate,
		s.ActualEndDate,
		s.PaymentDeadline,
		s.ActivatedAt,
		s.CompletedAt,
		s.CancelledAt,
		s.Metadata,
		s.UpdatedAt,
		s.ID,
		s.Version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return domain.ErrConcurrentUpdate
	}
	s.Version++
	return nil
}

func (r *repo) list(ctx context.Context, db *gorm.DB, where string, args ...any) ([]domain.Subscription, error) {
	var items []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByClient(ctx context.Context, db *gorm.DB, clientID int64) ([]domain.Subscription, error) {
	return r.list(ctx, db, `client_id = ? ORDER BY created_at DESC, id DESC`, clientID)
}

func (r *repo) ListActiveOn(ctx context.Context, db *gorm.DB, today time.Time) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND actual_end_date >= ? ORDER BY actual_end_date ASC, id ASC`,
		domain.StatusActive, today,
	)
}

func (r *repo) ListAwaitingPaymentOn(ctx context.Context, db *gorm.DB, today time.Time) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND payment_deadline >= ? ORDER BY payment_deadline ASC, id ASC`,
		domain.StatusAwaitingPayment, today,
	)
}

func (r *repo) ListUnpaidDeadlineBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, afterID int64, limit int) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND is_fully_paid = ? AND payment_deadline < ? AND id > ? ORDER BY id ASC LIMIT ?`,
		domain.StatusAwaitingPayment, false, cutoff, afterID, limit,
	)
}

func (r *repo) ListActiveEndedBefore(ctx context.Context, db *gorm.DB, today time.Time, afterID int64, limit int) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND actual_end_date < ? AND id > ? ORDER BY id ASC LIMIT ?`,
		domain.StatusActive, today, afterID, limit,
	)
}

func (r *repo) ListPaidPlannedBetween(ctx context.Context, db *gorm.DB, from, to time.Time, afterID int64, limit int) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND actual_start_date IS NULL AND planned_start_date >= ? AND planned_start_date < ?
		 AND id > ? ORDER BY id ASC LIMIT ?`,
		domain.StatusPaid, from, to, afterID, limit,
	)
}

func (r *repo) ListDueForActivation(ctx context.Context, db *gorm.DB, today time.Time, afterID int64, limit int) ([]domain.Subscription, error) {
	return r.list(ctx, db,
		`status = ? AND is_fully_paid = ? AND actual_start_date IS NOT NULL AND actual_start_date <= ?
		 AND id > ? ORDER BY id ASC LIMIT ?`,
		domain.StatusPaid, true, today, afterID, limit,
	)
}

func (r *repo) InsertServiceLinks(ctx context.Context, db *gorm.DB, links []domain.ServiceLink) error {
	if len(links) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&links).Error
}

func (r *repo) DeleteServiceLinks(ctx context.Context, db *gorm.DB, subscriptionID int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM subscription_services WHERE subscription_id = ?`,
		subscriptionID,
	).Error
}

func (r *repo) ListServiceLinks(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]domain.ServiceLink, error) {
	var items []domain.ServiceLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, service_id, price, start_date, end_date, created_at
		 FROM subscription_services WHERE subscription_id = ? ORDER BY id ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
