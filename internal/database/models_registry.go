package database

import "promptlime/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tool{},
		&models.Prompt{},
		&models.Like{},
		&models.Report{},
		&models.Notification{},
		&models.SystemSetting{},
		&models.PaymentEvent{},
	}
}
