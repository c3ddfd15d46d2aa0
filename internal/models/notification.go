package models

import "time"

// Notification scopes accepted by the fan-out.
const (
	NotificationScopeAll  = "all"
	NotificationScopeUser = "user"
)

// Notification is one inbox entry for one recipient.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_notification_user_read" json:"user_id"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	IsRead    bool       `gorm:"not null;default:false;index:idx_notification_user_read" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationEvent is the realtime payload pushed to connected clients.
type NotificationEvent struct {
	Type    string `json:"type"`
	ID      uint   `json:"id,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
