package models

import "time"

// ReportStatus is the lifecycle state of a moderation report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusResolved, ReportStatusDismissed:
		return true
	}
	return false
}

// Report is a user complaint about a prompt. PromptID may dangle once the
// prompt has been deleted.
type Report struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	PromptID     uint         `gorm:"not null;index" json:"prompt_id"`
	ReporterID   *uint        `gorm:"index" json:"reporter_id,omitempty"`
	Reason       string       `gorm:"size:500;not null" json:"reason"`
	Details      string       `gorm:"type:text" json:"details,omitempty"`
	Status       ReportStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	ResolvedByID *uint        `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Resolved by the moderation queue when listing; not persisted.
	Prompt        *Prompt `gorm:"-" json:"prompt,omitempty"`
	Reporter      *User   `gorm:"-" json:"reporter,omitempty"`
	PromptDeleted bool    `gorm:"-" json:"prompt_deleted"`
}
