package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Client, error)
	FindByPassport(ctx context.Context, db *gorm.DB, series, number string) (*Client, error)
	Search(ctx context.Context, db *gorm.DB, name string, limit int) ([]Client, error)
}
