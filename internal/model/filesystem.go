package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory is a node of an organization's tree. ParentID is nil for the root; Path holds
// the ids of all ancestors, root first, joined by "/".
type Directory struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey" json:"directory_id"`
	OrganizationID uuid.UUID  `gorm:"type:char(36);not null;index" json:"organization_id"`
	ParentID       *uuid.UUID `gorm:"type:char(36);index" json:"parent_id,omitempty"`
	Name           string     `gorm:"size:32;not null" json:"name"`
	Path           string     `gorm:"size:1024;not null;default:''" json:"-"`
	CreatedBy      uuid.UUID  `gorm:"type:char(36);not null" json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (d *Directory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// ChildPath is the Path of a directory created directly under d.
func (d *Directory) ChildPath() string {
	if d.Path == "" {
		return d.ID.String()
	}
	return d.Path + "/" + d.ID.String()
}

type File struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey" json:"file_id"`
	OrganizationID uuid.UUID `gorm:"type:char(36);not null;index" json:"organization_id"`
	DirectoryID    uuid.UUID `gorm:"type:char(36);not null;index" json:"directory_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	FileType       string    `gorm:"size:64;not null" json:"file_type"`
	Size           int64     `gorm:"not null" json:"file_size"`
	StoragePath    string    `gorm:"size:512;not null" json:"-"`
	CreatedBy      uuid.UUID `gorm:"type:char(36);not null" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
