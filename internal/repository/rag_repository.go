package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docvault/internal/model"
	"docvault/internal/rag"
)

// RAGRepository is the gorm-backed rag.Store.
type RAGRepository struct {
	db *gorm.DB
}

func NewRAGRepository(db *gorm.DB) *RAGRepository {
	return &RAGRepository{db: db}
}

var _ rag.Store = (*RAGRepository)(nil)

func (r *RAGRepository) ProfileExists(ctx context.Context, fileID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RAGProfile{}).Where("file_id = ?", fileID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count rag profiles by file failed: %w", err)
	}
	return count > 0, nil
}

// SaveProfile writes the profile row and all page rows in a single transaction.
func (r *RAGRepository) SaveProfile(ctx context.Context, profile *rag.Profile) error {
	row := model.RAGProfile{
		ID:             profile.ID,
		FileID:         profile.FileID,
		OrganizationID: profile.OrganizationID,
	}
	pages := make([]model.RAGPage, len(profile.Pages))
	for i, p := range profile.Pages {
		pages[i] = model.RAGPage{
			ID:         p.ID,
			ProfileID:  row.ID,
			PageNumber: p.PageNumber,
			Summary:    p.Summary,
			Embeddings: datatypes.NewJSONType(p.Embeddings),
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.RAGProfile{}).Where("file_id = ?", row.FileID).Count(&count).Error; err != nil {
			return fmt.Errorf("count rag profiles by file failed: %w", err)
		}
		if count > 0 {
			return rag.ErrAlreadyIngested
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return rag.ErrAlreadyIngested
			}
			return fmt.Errorf("create rag profile failed: %w", err)
		}
		if len(pages) > 0 {
			if err := tx.CreateInBatches(pages, 100).Error; err != nil {
				return fmt.Errorf("create rag pages failed: %w", err)
			}
		}
		return nil
	})
}

func (r *RAGRepository) HasProfiles(ctx context.Context, organizationID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RAGProfile{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count rag profiles by organization failed: %w", err)
	}
	return count > 0, nil
}

type pageRow struct {
	PageID     uuid.UUID
	ProfileID  uuid.UUID
	FileID     uuid.UUID
	FileName   string
	PageNumber int
	Embeddings datatypes.JSONType[[][]float32]
}

// ListPages returns the organization's pages ordered by profile creation, then page number.
func (r *RAGRepository) ListPages(ctx context.Context, organizationID uuid.UUID) ([]rag.PageRecord, error) {
	var rows []pageRow
	err := r.db.WithContext(ctx).
		Table("rag_pages").
		Select("rag_pages.id AS page_id, rag_pages.profile_id AS profile_id, rag_profiles.file_id AS file_id, " +
			"files.name AS file_name, rag_pages.page_number AS page_number, rag_pages.embeddings AS embeddings").
		Joins("JOIN rag_profiles ON rag_profiles.id = rag_pages.profile_id").
		Joins("JOIN files ON files.id = rag_profiles.file_id").
		Where("rag_profiles.organization_id = ?", organizationID).
		Order("rag_profiles.created_at ASC, rag_profiles.id ASC, rag_pages.page_number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list rag pages failed: %w", err)
	}

	records := make([]rag.PageRecord, len(rows))
	for i, row := range rows {
		records[i] = rag.PageRecord{
			PageID:     row.PageID,
			ProfileID:  row.ProfileID,
			FileID:     row.FileID,
			FileName:   row.FileName,
			PageNumber: row.PageNumber,
			Embeddings: row.Embeddings.Data(),
		}
	}
	return records, nil
}

func (r *RAGRepository) GetProfileByFileID(ctx context.Context, fileID uuid.UUID) (*model.RAGProfile, error) {
	var p model.RAGProfile
	if err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query rag profile by file failed: %w", err)
	}
	return &p, nil
}

func (r *RAGRepository) ListPagesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.RAGPage, error) {
	var pages []model.RAGPage
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("page_number ASC").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("list rag pages by profile failed: %w", err)
	}
	return pages, nil
}
