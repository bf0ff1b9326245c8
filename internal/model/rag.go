package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RAGProfile marks a file as ingested. A file has at most one profile.
type RAGProfile struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	FileID         uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"file_id"`
	OrganizationID uuid.UUID `gorm:"type:char(36);not null;index" json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (p *RAGProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// RAGPage stores the summary of one page and one embedding vector per summary chunk.
type RAGPage struct {
	ID         uuid.UUID                       `gorm:"type:char(36);primaryKey" json:"id"`
	ProfileID  uuid.UUID                       `gorm:"type:char(36);not null;uniqueIndex:idx_rag_page_profile_number" json:"profile_id"`
	PageNumber int                             `gorm:"not null;uniqueIndex:idx_rag_page_profile_number" json:"page_number"`
	Summary    string                          `gorm:"type:text;not null" json:"summary"`
	Embeddings datatypes.JSONType[[][]float32] `gorm:"not null" json:"-"`
	CreatedAt  time.Time                       `json:"created_at"`
}

func (p *RAGPage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

const (
	IngestionSucceeded = "succeeded"
	IngestionFailed    = "failed"
)

// IngestionEvent records the outcome of one ingestion attempt.
type IngestionEvent struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	FileID         uuid.UUID `gorm:"type:char(36);not null;index" json:"file_id"`
	OrganizationID uuid.UUID `gorm:"type:char(36);not null;index" json:"organization_id"`
	FileName       string    `gorm:"size:255" json:"file_name"`
	Status         string    `gorm:"size:16;not null" json:"status"`
	PageCount      int       `json:"page_count"`
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (e *IngestionEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
