package models

import "time"

// Known system setting keys.
const (
	SettingFreeCopyLimit = "free_copy_limit"
	SettingAnnouncement  = "announcement"
)

// SystemSetting is an admin-editable key/value pair.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentEvent records a processed payment webhook delivery.
type PaymentEvent struct {
	EventID     string    `gorm:"primaryKey;size:255" json:"event_id"`
	Type        string    `gorm:"size:100;not null" json:"type"`
	Email       string    `gorm:"size:255" json:"email"`
	ProcessedAt time.Time `json:"processed_at"`
}
