package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pressline/internal/publication/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const publicationColumns = `id, category_id, title, issn, publisher, description, periodicity, monthly_price, is_available, metadata, created_at, updated_at`

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var items []domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at FROM categories ORDER BY name ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, publication *domain.Publication) error {
	return db.WithContext(ctx).Create(publication).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Publication, error) {
	var p domain.Publication
	err := db.WithContext(ctx).Raw(
		`SELECT `+publicationColumns+` FROM publications WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, onlyAvailable bool) ([]domain.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications`
	args := []any{}
	if onlyAvailable {
		query += ` WHERE is_available = ?`
		args = append(args, true)
	}
	query += ` ORDER BY title ASC`

	var items []domain.Publication
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateAvailability(ctx context.Context, db *gorm.DB, id int64, available bool, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE publications SET is_available = ?, updated_at = ? WHERE id = ?`,
		available,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertService(ctx context.Context, db *gorm.DB, service *domain.AdditionalService) error {
	return db.WithContext(ctx).Create(service).Error
}

func (r *repo) FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.AdditionalService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.AdditionalService
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, is_active, created_at
		 FROM additional_services WHERE id IN ?`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListServices(ctx context.Context, db *gorm.DB, onlyActive bool) ([]domain.AdditionalService, error) {
	query := `SELECT id, name, description, price, is_active, created_at FROM additional_services`
	args := []any{}
	if onlyActive {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name ASC`

	var items []domain.AdditionalService
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
