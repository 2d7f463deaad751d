package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodCardInPerson Method = "card_in_person"
	MethodCardOnline   Method = "card_online"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCardInPerson, MethodCardOnline, MethodBankTransfer:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusRejected            Status = "rejected"
	StatusRefunded            Status = "refunded"
)

// Payment is a recorded attempt to pay a subscription in full.
type Payment struct {
	ID                int64             `json:"id,string" gorm:"primaryKey"`
	SubscriptionID    int64             `json:"subscription_id,string" gorm:"not null;index"`
	Amount            decimal.Decimal   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method            Method            `json:"method" gorm:"type:varchar(32);not null"`
	Status            Status            `json:"status" gorm:"type:varchar(32);not null;index"`
	ReceiptNumber     string            `json:"receipt_number" gorm:"type:varchar(255);not null;uniqueIndex:ux_payments_receipt_number"`
	BankTransactionID *string           `json:"bank_transaction_id,omitempty" gorm:"type:text"`
	OperatorID        *int64            `json:"operator_id,omitempty"`
	SubmittedAt       time.Time         `json:"submitted_at" gorm:"not null"`
	ProcessedAt       *time.Time        `json:"processed_at,omitempty"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
