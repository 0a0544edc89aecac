package repository

import (
	"context"

	"stock-dashboard/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UploadsRepository defines the persistence operations for the uploads
// collection, one row per imported tab keyed by tab id.
type UploadsRepository interface {
	FindAll(ctx context.Context) ([]entity.Upload, error)
	Put(ctx context.Context, uploads ...*entity.Upload) error
	Delete(ctx context.Context, id string) error
}

// NewUploadsRepository creates a new GORM-based uploads repository.
func NewUploadsRepository(db *gorm.DB) UploadsRepository {
	return &uploadsRepository{db: db}
}

type uploadsRepository struct {
	db *gorm.DB
}

// FindAll retrieves all upload rows, order unspecified.
func (r *uploadsRepository) FindAll(ctx context.Context) ([]entity.Upload, error) {
	var uploads []entity.Upload
	if err := r.db.WithContext(ctx).Find(&uploads).Error; err != nil {
		return nil, storageRead("find uploads", err)
	}
	return uploads, nil
}

// Put upserts one or many upload rows by id.
func (r *uploadsRepository) Put(ctx context.Context, uploads ...*entity.Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&uploads).Error
	if err != nil {
		return storageWrite("put uploads", err)
	}
	return nil
}

// Delete removes one upload by id; deleting an absent id is a no-op.
func (r *uploadsRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&entity.Upload{}, "id = ?", id).Error; err != nil {
		return storageWrite("delete upload", err)
	}
	return nil
}
