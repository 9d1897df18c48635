package models

import (
	"time"

	"freedash/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables. Rows are never soft-deleted:
// the sync flow only creates and updates, and account removal is a hard delete.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
