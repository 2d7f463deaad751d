package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pressline/internal/operator/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, operator *domain.Operator) error {
	return db.WithContext(ctx).Create(operator).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Operator, error) {
	var op domain.Operator
	err := db.WithContext(ctx).Raw(
		`SELECT id, login, full_name, password_hash, is_active, created_at FROM operators WHERE id = ?`,
		id,
	).Scan(&op).Error
	if err != nil {
		return nil, err
	}
	if op.ID == 0 {
		return nil, nil
	}
	return &op, nil
}

func (r *repo) FindByLogin(ctx context.Context, db *gorm.DB, login string) (*domain.Operator, error) {
	var op domain.Operator
	err := db.WithContext(ctx).Raw(
		`SELECT id, login, full_name, password_hash, is_active, created_at FROM operators WHERE login = ?`,
		login,
	).Scan(&op).Error
	if err != nil {
		return nil, err
	}
	if op.ID == 0 {
		return nil, nil
	}
	return &op, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM operators`).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.SessionRecord) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.SessionRecord, error) {
	var session domain.SessionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, operator_id, token_hash, expires_at, revoked_at, created_at
		 FROM operator_sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) RevokeSession(ctx context.Context, db *gorm.DB, tokenHash string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE operator_sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		at,
		tokenHash,
	).Error
}
