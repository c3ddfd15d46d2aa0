package validation

import (
	"strings"

	"promptlime/internal/models"

	"github.com/gosimple/slug"
)

const maxSlugLength = 120

// Slugify derives the catalog slug for a category or tool name: lowercase,
// with runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) (string, error) {
	s := slug.Make(strings.TrimSpace(name))
	if s == "" {
		return "", models.NewValidationError("name must contain at least one letter or digit")
	}
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s, nil
}
