package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/pressline/internal/payment/domain"
)

type Service interface {
	CreateSubscription(ctx context.Context, req CreateRequest) (*Subscription, error)
	UpdateSubscription(ctx context.Context, req UpdateRequest) (*Subscription, error)
	ActivateSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelOverduePayments(ctx context.Context) (int, error)

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*paymentdomain.Payment, error)
	ConfirmPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*Subscription, error)
	RejectPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*paymentdomain.Payment, error)
	RefundPayment(ctx context.Context, session operatordomain.Session, paymentID string) (*Subscription, error)

	Get(ctx context.Context, subscriptionID string) (*Subscription, error)
	ListByClient(ctx context.Context, clientID string) ([]Subscription, error)
	ListActive(ctx context.Context) ([]Subscription, error)
	ListAwaitingPayment(ctx context.Context) ([]Subscription, error)
	ListPayments(ctx context.Context, subscriptionID string) ([]paymentdomain.Payment, error)
	ListDeliveries(ctx context.Context, subscriptionID string) ([]deliverydomain.Delivery, error)
	ListServices(ctx context.Context, subscriptionID string) ([]ServiceLink, error)
}

type CreateRequest struct {
	ClientID         string          `json:"client_id"`
	PublicationID    string          `json:"publication_id"`
	PeriodMonths     int             `json:"period_months"`
	PlannedStartDate time.Time       `json:"planned_start_date"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	ServiceIDs       []string        `json:"service_ids"`
	Metadata         map[string]any  `json:"metadata"`
}

// UpdateRequest changes the terms of a subscription that is still awaiting
// payment. Nil fields are left untouched.
type UpdateRequest struct {
	SubscriptionID   string           `json:"-"`
	PeriodMonths     *int             `json:"period_months"`
	PlannedStartDate *time.Time       `json:"planned_start_date"`
	TotalPrice       *decimal.Decimal `json:"total_price"`
	ServiceIDs       *[]string        `json:"service_ids"`
}

type RecordPaymentRequest struct {
	SubscriptionID    string               `json:"-"`
	Amount            decimal.Decimal      `json:"amount"`
	Method            paymentdomain.Method `json:"method"`
	ReceiptNumber     string               `json:"receipt_number"`
	BankTransactionID string               `json:"bank_transaction_id"`
}
