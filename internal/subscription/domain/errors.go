package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by the lifecycle service matches exactly
// one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidState    = errors.New("invalid_state")
	ErrUnavailable     = errors.New("unavailable")
	ErrAmountMismatch  = errors.New("amount_mismatch")
	ErrDeadlineExpired = errors.New("deadline_expired")
	ErrNotActivatable  = errors.New("not_activatable")
	ErrInvalidInput    = errors.New("invalid_input")
)

var (
	ErrSubscriptionNotFound = fmt.Errorf("subscription_not_found: %w", ErrNotFound)
	ErrPublicationNotFound  = fmt.Errorf("publication_not_found: %w", ErrNotFound)
	ErrClientNotFound       = fmt.Errorf("client_not_found: %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment_not_found: %w", ErrNotFound)
	ErrServiceNotFound      = fmt.Errorf("additional_service_not_found: %w", ErrNotFound)

	ErrPublicationUnavailable = fmt.Errorf("publication_unavailable: %w", ErrUnavailable)

	ErrNotAwaitingPayment  = fmt.Errorf("subscription_not_awaiting_payment: %w", ErrInvalidState)
	ErrPaymentNotPending   = fmt.Errorf("payment_not_pending: %w", ErrInvalidState)
	ErrPaymentNotConfirmed = fmt.Errorf("payment_not_confirmed: %w", ErrInvalidState)
	ErrNotRefundable       = fmt.Errorf("subscription_not_refundable: %w", ErrInvalidState)
	ErrDuplicateReceipt    = fmt.Errorf("duplicate_receipt_number: %w", ErrInvalidState)
	ErrConcurrentUpdate    = fmt.Errorf("concurrent_update: %w", ErrInvalidState)
	ErrOperatorRequired    = fmt.Errorf("operator_session_required: %w", ErrInvalidState)
	ErrPaymentDeadlinePast = fmt.Errorf("payment_deadline_expired: %w", ErrDeadlineExpired)

	ErrInvalidID            = fmt.Errorf("invalid_id: %w", ErrInvalidInput)
	ErrInvalidPeriod        = fmt.Errorf("invalid_period: %w", ErrInvalidInput)
	ErrInvalidStartDate     = fmt.Errorf("invalid_start_date: %w", ErrInvalidInput)
	ErrInvalidAmount        = fmt.Errorf("invalid_amount: %w", ErrInvalidInput)
	ErrInvalidPaymentMethod = fmt.Errorf("invalid_payment_method: %w", ErrInvalidInput)
)

// AmountMismatchError reports a payment that does not equal the subscription total.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount_mismatch: expected %s, got %s", e.Expected.StringFixed(2), e.Got.StringFixed(2))
}

func (e *AmountMismatchError) Is(target error) bool {
	return target == ErrAmountMismatch
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From SubscriptionStatus
	To   SubscriptionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidState
}

// NotActivatableError carries the reason activation was refused.
type NotActivatableError struct {
	Reason string
}

func (e *NotActivatableError) Error() string {
	return "not_activatable: " + e.Reason
}

func (e *NotActivatableError) Is(target error) bool {
	return target == ErrNotActivatable
}
