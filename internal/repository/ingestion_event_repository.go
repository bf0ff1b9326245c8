package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docvault/internal/model"
)

type IngestionEventRepository struct {
	db *gorm.DB
}

func NewIngestionEventRepository(db *gorm.DB) *IngestionEventRepository {
	return &IngestionEventRepository{db: db}
}

func (r *IngestionEventRepository) Create(ctx context.Context, event *model.IngestionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create ingestion event failed: %w", err)
	}
	return nil
}

func (r *IngestionEventRepository) ListByFile(ctx context.Context, fileID uuid.UUID) ([]model.IngestionEvent, error) {
	var events []model.IngestionEvent
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list ingestion events failed: %w", err)
	}
	return events, nil
}
