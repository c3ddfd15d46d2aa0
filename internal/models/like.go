package models

import "time"

// Like records that a user liked a prompt. One row per (user, prompt).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_prompt" json:"user_id"`
	PromptID  uint      `gorm:"not null;uniqueIndex:idx_like_user_prompt;index" json:"prompt_id"`
	CreatedAt time.Time `json:"created_at"`
}
