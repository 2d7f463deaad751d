package domain

import (
	"context"
	"errors"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Client, error)
	Get(ctx context.Context, id string) (*Client, error)
	Search(ctx context.Context, name string) ([]Client, error)
}

type RegisterRequest struct {
	FullName       string `json:"full_name"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	PassportSeries string `json:"passport_series"`
	PassportNumber string `json:"passport_number"`
	PassportIssuer string `json:"passport_issuer"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_full_name")
	ErrInvalidPassport   = errors.New("invalid_passport")
	ErrDuplicatePassport = errors.New("duplicate_passport")
	ErrNotFound          = errors.New("client_not_found")
)
