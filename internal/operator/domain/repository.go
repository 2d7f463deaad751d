package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, operator *Operator) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Operator, error)
	FindByLogin(ctx context.Context, db *gorm.DB, login string) (*Operator, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)

	InsertSession(ctx context.Context, db *gorm.DB, session *SessionRecord) error
	FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*SessionRecord, error)
	RevokeSession(ctx context.Context, db *gorm.DB, tokenHash string, at time.Time) error
}
