package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docvault/internal/model"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *model.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	return nil
}

// CreateWithinQuota inserts file unless it would push its organization past the storage limit.
// The organization row is locked while the used storage is summed, so concurrent uploads to one
// organization are checked one at a time.
func (r *FileRepository) CreateWithinQuota(ctx context.Context, file *model.File) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org model.Organization
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", file.OrganizationID).
			First(&org).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock organization failed: %w", err)
		}

		var used int64
		err = tx.Model(&model.File{}).
			Where("organization_id = ?", file.OrganizationID).
			Select("COALESCE(SUM(size), 0)").
			Scan(&used).Error
		if err != nil {
			return fmt.Errorf("sum organization storage failed: %w", err)
		}
		if used+file.Size > org.StorageLimitBytes() {
			return ErrQuotaExceeded
		}

		if err := tx.Create(file).Error; err != nil {
			return fmt.Errorf("create file failed: %w", err)
		}
		return nil
	})
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	var file model.File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query file by id failed: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) ListByDirectory(ctx context.Context, directoryID uuid.UUID) ([]model.File, error) {
	var files []model.File
	err := r.db.WithContext(ctx).
		Where("directory_id = ?", directoryID).
		Order("name ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files by directory failed: %w", err)
	}
	return files, nil
}

// DeleteCascade removes a file together with its RAG profile and pages in one transaction.
func (r *FileRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := tx.Model(&model.RAGProfile{}).Select("id").Where("file_id = ?", id)
		if err := tx.Where("profile_id IN (?)", profiles).Delete(&model.RAGPage{}).Error; err != nil {
			return fmt.Errorf("delete rag pages failed: %w", err)
		}
		if err := tx.Where("file_id = ?", id).Delete(&model.RAGProfile{}).Error; err != nil {
			return fmt.Errorf("delete rag profile failed: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.File{}).Error; err != nil {
			return fmt.Errorf("delete file failed: %w", err)
		}
		return nil
	})
}
