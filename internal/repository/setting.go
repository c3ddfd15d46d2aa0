package repository

import (
	"context"
	"time"

	"promptlime/internal/cache"
	"promptlime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository stores admin-editable system settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]models.SystemSetting, error)
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository returns a SettingRepository backed by db.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

type cachedSetting struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Get returns the value and whether the key is set. Lookups, including
// misses, are cached briefly.
func (r *settingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry cachedSetting
	err := cache.Aside(ctx, cache.SettingKey(key), &entry, cache.SettingTTL, func() error {
		var s models.SystemSetting
		err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
		switch {
		case err == nil:
			entry = cachedSetting{Value: s.Value, Found: true}
		case isNotFound(err):
			entry = cachedSetting{}
		default:
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return entry.Value, entry.Found, nil
}

func (r *settingRepository) Set(ctx context.Context, key, value string) error {
	s := models.SystemSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.SettingKey(key))
	return nil
}

func (r *settingRepository) All(ctx context.Context) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	if err := r.db.WithContext(ctx).Order("key").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
