package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docvault/internal/model"
)

type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) Create(ctx context.Context, dir *model.Directory) error {
	if err := r.db.WithContext(ctx).Create(dir).Error; err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}
	return nil
}

func (r *DirectoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Directory, error) {
	var dir model.Directory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dir).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query directory by id failed: %w", err)
	}
	return &dir, nil
}

func (r *DirectoryRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Directory, error) {
	var dirs []model.Directory
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&dirs).Error
	if err != nil {
		return nil, fmt.Errorf("list child directories failed: %w", err)
	}
	return dirs, nil
}
