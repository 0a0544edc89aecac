package repository

import (
	"context"

	"stock-dashboard/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoritesRepository defines the persistence operations for the favorites
// collection. Puts are idempotent upserts keyed by code; a batch put carries
// no atomicity guarantee across rows, each row is safe to re-write.
type FavoritesRepository interface {
	FindAll(ctx context.Context) ([]entity.Favorite, error)
	Put(ctx context.Context, codes ...string) error
	Delete(ctx context.Context, code string) error
	Clear(ctx context.Context) error
}

// NewFavoritesRepository creates a new GORM-based favorites repository.
func NewFavoritesRepository(db *gorm.DB) FavoritesRepository {
	return &favoritesRepository{db: db}
}

type favoritesRepository struct {
	db *gorm.DB
}

// FindAll retrieves all favorite rows, order unspecified.
func (r *favoritesRepository) FindAll(ctx context.Context) ([]entity.Favorite, error) {
	var favorites []entity.Favorite
	if err := r.db.WithContext(ctx).Find(&favorites).Error; err != nil {
		return nil, storageRead("find favorites", err)
	}
	return favorites, nil
}

// Put upserts one or many favorite codes.
func (r *favoritesRepository) Put(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]entity.Favorite, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, entity.Favorite{Code: code})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return storageWrite("put favorites", err)
	}
	return nil
}

// Delete removes one favorite by code; deleting an absent code is a no-op.
func (r *favoritesRepository) Delete(ctx context.Context, code string) error {
	if err := r.db.WithContext(ctx).Delete(&entity.Favorite{}, "code = ?", code).Error; err != nil {
		return storageWrite("delete favorite", err)
	}
	return nil
}

// Clear removes every favorite row.
func (r *favoritesRepository) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&entity.Favorite{}).Error; err != nil {
		return storageWrite("clear favorites", err)
	}
	return nil
}
