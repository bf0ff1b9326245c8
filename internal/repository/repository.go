package repository

import (
	"errors"

	"gorm.io/gorm"

	"docvault/internal/model"
)

var (
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate     = errors.New("duplicate record")
	ErrNotFound      = errors.New("record not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.Membership{},
		&model.Directory{},
		&model.File{},
		&model.RAGProfile{},
		&model.RAGPage{},
		&model.IngestionEvent{},
	)
}
