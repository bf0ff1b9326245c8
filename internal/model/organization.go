package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultStorageLimitGB = 10

type Organization struct {
	ID              uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name            string    `gorm:"size:32;not null" json:"name"`
	IconSrc         string    `gorm:"size:255" json:"icon_src"`
	OwnerID         uuid.UUID `gorm:"type:char(36);not null;index" json:"owner_id"`
	RootDirectoryID uuid.UUID `gorm:"type:char(36);not null" json:"root_directory_id"`
	StorageLimitGB  int       `gorm:"not null;default:10" json:"storage_limit_gb"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	if o.StorageLimitGB <= 0 {
		o.StorageLimitGB = DefaultStorageLimitGB
	}
	return nil
}

// StorageLimitBytes is the total size of files the organization may hold.
func (o *Organization) StorageLimitBytes() int64 {
	return int64(o.StorageLimitGB) << 30
}

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Membership struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_membership_user_org" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_membership_user_org;index" json:"organization_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
