package repositories

import (
	"context"
	"errors"

	"loan-console/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStorageRepository implements StorageRepository on the console_storage table
type gormStorageRepository struct {
	db *gorm.DB
}

// NewGormStorageRepository creates a MySQL-backed storage repository
func NewGormStorageRepository(db *gorm.DB) StorageRepository {
	return &gormStorageRepository{db: db}
}

// Get gets a value by namespace and key
func (r *gormStorageRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var entry models.StorageEntry
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", namespace, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// SetMany upserts all values in one transaction
func (r *gormStorageRepository) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			entry := models.StorageEntry{Namespace: namespace, Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes keys from a namespace
func (r *gormStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("namespace = ? AND entry_key IN ?", namespace, keys).
		Delete(&models.StorageEntry{}).Error
}

// Ping checks if database is healthy
func (r *gormStorageRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
