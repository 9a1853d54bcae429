package models

import (
	"time"

	"gorm.io/gorm"
)

// StorageEntry represents console_storage table: one cached value per
// device namespace and key
type StorageEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Namespace string    `gorm:"size:64;not null;uniqueIndex:idx_storage_namespace_key"`
	Key       string    `gorm:"column:entry_key;size:64;not null;uniqueIndex:idx_storage_namespace_key"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (StorageEntry) TableName() string {
	return "console_storage"
}

// AutoMigrate creates the console tables if they do not exist
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&StorageEntry{})
}
