package domain

import (
	"context"
	"errors"
)

type Service interface {
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Delivery, error)
}

type UpdateStatusRequest struct {
	DeliveryID string `json:"-"`
	Status     Status `json:"status"`
	Note       string `json:"note"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_delivery_status")
	ErrNotFound          = errors.New("delivery_not_found")
	ErrInvalidTransition = errors.New("invalid_delivery_transition")
	ErrInvalidWindow     = errors.New("invalid_delivery_window")
)
