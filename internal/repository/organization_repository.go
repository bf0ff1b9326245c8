package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docvault/internal/model"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateWithRoot inserts an organization together with its root directory and the owner's
// membership. The three rows are committed together.
func (r *OrganizationRepository) CreateWithRoot(ctx context.Context, org *model.Organization, root *model.Directory, owner *model.Membership) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("create organization failed: %w", err)
		}
		if err := tx.Create(root).Error; err != nil {
			return fmt.Errorf("create root directory failed: %w", err)
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("create owner membership failed: %w", err)
		}
		return nil
	})
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query organization by id failed: %w", err)
	}
	return &org, nil
}

// ListByMember returns the organizations userID belongs to, oldest first.
func (r *OrganizationRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]model.Organization, error) {
	var orgs []model.Organization
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.organization_id = organizations.id").
		Where("memberships.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations by member failed: %w", err)
	}
	return orgs, nil
}

func (r *OrganizationRepository) GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query membership failed: %w", err)
	}
	return &m, nil
}

func (r *OrganizationRepository) AddMember(ctx context.Context, m *model.Membership) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create membership failed: %w", err)
	}
	return nil
}

// UsedStorage is the total size in bytes of the organization's files.
func (r *OrganizationRepository) UsedStorage(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("organization_id = ?", organizationID).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum organization storage failed: %w", err)
	}
	return total, nil
}
