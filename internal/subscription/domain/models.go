// Package domain contains the subscription lifecycle model and its rules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressline/internal/clock"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	StatusCreated         SubscriptionStatus = "created"
	StatusAwaitingPayment SubscriptionStatus = "awaiting_payment"
	StatusPaid            SubscriptionStatus = "paid"
	StatusActive          SubscriptionStatus = "active"
	StatusCompleted       SubscriptionStatus = "completed"
	StatusCancelled       SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusAwaitingPayment, StatusPaid, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Subscription is a client's paid-for entitlement to a publication over a
// contiguous range of whole months.
type Subscription struct {
	ID               int64              `json:"id,string" gorm:"primaryKey"`
	ClientID         int64              `json:"client_id,string" gorm:"not null;index"`
	PublicationID    int64              `json:"publication_id,string" gorm:"not null;index"`
	PeriodMonths     int                `json:"period_months" gorm:"not null"`
	MonthlyPrice     decimal.Decimal    `json:"monthly_price" gorm:"type:numeric(12,2);not null"`
	TotalPrice       decimal.Decimal    `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Status           SubscriptionStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	IsFullyPaid      bool               `json:"is_fully_paid" gorm:"not null"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	PlannedStartDate *time.Time         `json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time         `json:"planned_end_date,omitempty"`
	ActualStartDate  *time.Time         `json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time         `json:"actual_end_date,omitempty" gorm:"index"`
	PaymentDeadline  *time.Time         `json:"payment_deadline,omitempty" gorm:"index"`
	ActivatedAt      *time.Time         `json:"activated_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	Version          int64              `json:"version" gorm:"not null"`
	Metadata         datatypes.JSONMap  `json:"metadata,omitempty"`
	CreatedAt        time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ServiceLink attaches an additional service to a subscription for its period.
type ServiceLink struct {
	ID             int64           `json:"id,string" gorm:"primaryKey"`
	SubscriptionID int64           `json:"subscription_id,string" gorm:"not null;index"`
	ServiceID      int64           `json:"service_id,string" gorm:"not null"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
}

func (ServiceLink) TableName() string { return "subscription_services" }

// CalculateDates sets the planned end from the planned start and period.
func (s *Subscription) CalculateDates() {
	if s.PlannedStartDate == nil || s.PeriodMonths <= 0 {
		s.PlannedEndDate = nil
		return
	}
	end := clock.PeriodEnd(*s.PlannedStartDate, s.PeriodMonths)
	s.PlannedEndDate = &end
}

// SetActualPeriod fixes the delivery window to start for the configured number of months.
func (s *Subscription) SetActualPeriod(start time.Time) {
	start = clock.Date(start)
	end := clock.PeriodEnd(start, s.PeriodMonths)
	s.ActualStartDate = &start
	s.ActualEndDate = &end
}

// ActivationBlocker explains why the subscription cannot be activated on
// today, or returns "" when it can.
func (s Subscription) ActivationBlocker(today time.Time) string {
	switch {
	case s.Status != StatusPaid:
		return "status is " + string(s.Status)
	case !s.IsFullyPaid:
		return "not fully paid"
	case s.ActualStartDate == nil:
		return "no actual start date"
	case s.ActualStartDate.After(today):
		return "actual start date is in the future"
	}
	return ""
}

// CanBeActivated reports whether ActivateSubscription would succeed on today.
func (s Subscription) CanBeActivated(today time.Time) bool {
	return s.ActivationBlocker(today) == ""
}

// MarkPaid records full payment and fixes the actual period starting at start.
func (s *Subscription) MarkPaid(at, start time.Time) error {
	if err := s.TransitionTo(StatusPaid, at); err != nil {
		return err
	}
	paidAt := at
	s.IsFullyPaid = true
	s.PaidAt = &paidAt
	s.SetActualPeriod(start)
	return nil
}

// TransitionTo moves the subscription to target, stamping the matching timestamp.
func (s *Subscription) TransitionTo(target SubscriptionStatus, at time.Time) error {
	if !CanTransition(s.Status, target) {
		return &TransitionError{From: s.Status, To: target}
	}
	stamp := at
	switch target {
	case StatusActive:
		s.ActivatedAt = &stamp
	case StatusCompleted:
		s.CompletedAt = &stamp
	case StatusCancelled:
		s.CancelledAt = &stamp
	}
	s.Status = target
	s.UpdatedAt = at
	return nil
}

var allowedTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusCreated:         {StatusAwaitingPayment},
	StatusAwaitingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:            {StatusActive, StatusCancelled},
	StatusActive:          {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether current may move to target. Completed and
// cancelled are terminal.
func CanTransition(current, target SubscriptionStatus) bool {
	for _, next := range allowedTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}
