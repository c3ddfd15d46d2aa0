// Package models defines the persistent entities and API error types.
package models

import (
	"strings"
	"time"
)

// Session roles carried in the token.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account created on first sign-in through the identity provider.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string     `gorm:"size:120" json:"name"`
	Image     string     `gorm:"size:512" json:"image,omitempty"`
	IsPro     bool       `gorm:"not null;default:false" json:"is_pro"`
	ProSince  *time.Time `json:"pro_since,omitempty"`
	IsAdmin   bool       `gorm:"not null;default:false" json:"is_admin"`
	CopyCount int        `gorm:"not null;default:0" json:"copy_count"`
	LastReset *time.Time `json:"last_reset,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Role returns the session role for the user.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
