package models

import (
	"sort"
	"strings"
	"time"
)

// Prompt sort orders accepted by list endpoints.
const (
	PromptSortNew     = "new"
	PromptSortPopular = "popular"
	PromptSortLiked   = "liked"
	PromptSortViewed  = "viewed"
)

// Prompt is a reusable text prompt listed in the catalog.
type Prompt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Category      string    `gorm:"size:100;index;not null" json:"category"`
	Tool          string    `gorm:"size:100;index;not null" json:"tool"`
	Tags          []string  `gorm:"type:text;serializer:json" json:"tags"`
	Body          string    `gorm:"type:text;not null" json:"body,omitempty"`
	ImageURL      string    `gorm:"size:512" json:"image_url,omitempty"`
	CopyCount     int64     `gorm:"not null;default:0" json:"copy_count"`
	Likes         int64     `gorm:"not null;default:0" json:"likes"`
	Views         int64     `gorm:"not null;default:0" json:"views"`
	IsFeatured    bool      `gorm:"not null;default:false;index" json:"is_featured"`
	SubmittedByID *uint     `gorm:"index" json:"submitted_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Liked is computed per request for the signed-in caller.
	Liked bool `gorm:"->;-:migration" json:"liked"`
}

// NormalizeTags lowercases, trims, deduplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
