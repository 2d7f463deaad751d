package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Operator, error)
	Login(ctx context.Context, login, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (Session, error)
	Logout(ctx context.Context, token string) error
	EnsureBootstrapAdmin(ctx context.Context, req CreateRequest) (bool, error)
}

type CreateRequest struct {
	Login    string `json:"login"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

var (
	ErrInvalidLogin       = errors.New("invalid_login")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrDuplicateLogin     = errors.New("duplicate_login")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
)
