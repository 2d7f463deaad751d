package service

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/pressline/internal/clock"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/pressline/internal/payment/domain"
	"github.com/smallbiznis/pressline/internal/subscription/domain"
	"github.com/smallbiznis/pressline/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordPayment registers a full payment attempt awaiting operator confirmation.
// The amount is compared before the status so a wrong amount is always reported.
func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (*paymentdomain.Payment, error) {
	subscriptionID, err := parseID(req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !req.Method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}
	receipt := strings.TrimSpace(req.ReceiptNumber)
	if receipt == "" {
		receipt = "R-" + ulid.Make().String()
	}

	now, today, _ := s.now()
	var recorded *paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.loadSubscription(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if !req.Amount.Equal(sub.TotalPrice) {
			return &domain.AmountMismatchError{Expected: sub.TotalPrice, Got: req.Amount}
		}
		if sub.Status != domain.StatusAwaitingPayment {
			return domain.ErrNotAwaitingPayment
		}
		if sub.PaymentDeadline != nil && today.After(*sub.PaymentDeadline) {
			return domain.ErrPaymentDeadlinePast
		}

		exists, err := s.paymentRepo.ReceiptExists(ctx, tx, receipt)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateReceipt
		}

		payment := &paymentdomain.Payment{
			ID:             s.genID.Generate().Int64(),
			SubscriptionID: sub.ID,
			Amount:         req.Amount.Round(2),
			Method:         req.Method,
			Status:         paymentdomain.StatusPendingConfirmation,
			ReceiptNumber:  receipt,
			SubmittedAt:    now,
			UpdatedAt:      now,
		}
		if txID := strings.TrimSpace(req.BankTransactionID); txID != "" {
			payment.BankTransactionID = &txID
		}
		if err := s.paymentRepo.Insert(ctx, tx, payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateReceipt
			}
			return err
		}
		recorded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.Int64("payment_id", recorded.ID),
		zap.Int64("subscription_id", recorded.SubscriptionID),
		zap.String("method", string(recorded.Method)),
		zap.String("receipt_number", recorded.ReceiptNumber),
	)
	return recorded, nil
}

// ConfirmPayment accepts a pending payment and marks its subscription paid.
// Delivery starts on the first day of the month after today.
func (s *Service) ConfirmPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*domain.Subscription, error) {
	id, err := s.checkPaymentRequest(session, paymentID)
	if err != nil {
		return nil, err
	}

	now, today, _ := s.now()
	var paid *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.loadPayment(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusPendingConfirmation {
			return domain.ErrPaymentNotPending
		}
		sub, err := s.loadSubscription(ctx, tx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != domain.StatusAwaitingPayment {
			return domain.ErrNotAwaitingPayment
		}

		if err := s.processPayment(ctx, tx, payment, session, paymentdomain.StatusConfirmed, paymentdomain.StatusPendingConfirmation); err != nil {
			return err
		}
		if err := sub.MarkPaid(now, clock.FirstOfNextMonth(today)); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		paid = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment confirmed",
		zap.String("payment_id", paymentID),
		zap.Int64("subscription_id", paid.ID),
		zap.Int64("operator_id", session.OperatorID),
		zap.Time("actual_start_date", *paid.ActualStartDate),
	)
	return paid, nil
}

// RejectPayment declines a pending payment. The subscription keeps waiting
// for another attempt.
func (s *Service) RejectPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*paymentdomain.Payment, error) {
	id, err := s.checkPaymentRequest(session, paymentID)
	if err != nil {
		return nil, err
	}

	var rejected *paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.loadPayment(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusPendingConfirmation {
			return domain.ErrPaymentNotPending
		}
		if err := s.processPayment(ctx, tx, payment, session, paymentdomain.StatusRejected, paymentdomain.StatusPendingConfirmation); err != nil {
			return err
		}
		rejected = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment rejected",
		zap.Int64("payment_id", rejected.ID),
		zap.Int64("subscription_id", rejected.SubscriptionID),
		zap.Int64("operator_id", session.OperatorID),
	)
	return rejected, nil
}

// RefundPayment returns a confirmed payment and cancels the subscription it
// paid for. Already scheduled deliveries are left as they are.
func (s *Service) RefundPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*domain.Subscription, error) {
	id, err := s.checkPaymentRequest(session, paymentID)
	if err != nil {
		return nil, err
	}

	now, _, _ := s.now()
	var cancelled *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.loadPayment(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusConfirmed {
			return domain.ErrPaymentNotConfirmed
		}
		sub, err := s.loadSubscription(ctx, tx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != domain.StatusPaid && sub.Status != domain.StatusActive {
			return domain.ErrNotRefundable
		}

		if err := s.processPayment(ctx, tx, payment, session, paymentdomain.StatusRefunded, paymentdomain.StatusConfirmed); err != nil {
			return err
		}
		if err := sub.TransitionTo(domain.StatusCancelled, now); err != nil {
			return err
		}
		sub.IsFullyPaid = false
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		cancelled = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment refunded",
		zap.String("payment_id", paymentID),
		zap.Int64("subscription_id", cancelled.ID),
		zap.Int64("operator_id", session.OperatorID),
	)
	return cancelled, nil
}

func (s *Service) checkPaymentRequest(session operatordomain.Session, paymentID string) (int64, error) {
	if !session.Valid() {
		return 0, domain.ErrOperatorRequired
	}
	return parseID(paymentID)
}

func (s *Service) loadPayment(ctx context.Context, tx *gorm.DB, id int64) (*paymentdomain.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) processPayment(
	ctx context.Context,
	tx *gorm.DB,
	payment *paymentdomain.Payment,
	session operatordomain.Session,
	target, expected paymentdomain.Status,
) error {
	now, _, _ := s.now()
	operatorID := session.OperatorID
	payment.Status = target
	payment.OperatorID = &operatorID
	payment.ProcessedAt = &now
	payment.UpdatedAt = now

	updated, err := s.paymentRepo.UpdateProcessing(ctx, tx, payment, expected)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
