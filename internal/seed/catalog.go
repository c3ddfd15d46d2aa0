package seed

import (
	_ "embed"
	"fmt"

	"promptlime/internal/models"
	"promptlime/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed catalog.yml
var catalogYAML []byte

// CatalogEntry is a built-in category or tool.
type CatalogEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CuratedPrompt is a hand-written prompt shipped with the catalog.
type CuratedPrompt struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Tool     string   `yaml:"tool"`
	Tags     []string `yaml:"tags"`
	Body     string   `yaml:"body"`
	Featured bool     `yaml:"featured"`
}

// BuiltInCatalog is the parsed catalog.yml.
type BuiltInCatalog struct {
	Categories []CatalogEntry  `yaml:"categories"`
	Tools      []CatalogEntry  `yaml:"tools"`
	Prompts    []CuratedPrompt `yaml:"prompts"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*BuiltInCatalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document and checks that every curated
// prompt points at a category and tool defined in the same document.
func ParseCatalog(raw []byte) (*BuiltInCatalog, error) {
	var cat BuiltInCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	categories, err := slugSet(cat.Categories)
	if err != nil {
		return nil, fmt.Errorf("catalog categories: %w", err)
	}
	tools, err := slugSet(cat.Tools)
	if err != nil {
		return nil, fmt.Errorf("catalog tools: %w", err)
	}
	for _, p := range cat.Prompts {
		if _, ok := categories[p.Category]; !ok {
			return nil, fmt.Errorf("prompt %q: unknown category %q", p.Title, p.Category)
		}
		if _, ok := tools[p.Tool]; !ok {
			return nil, fmt.Errorf("prompt %q: unknown tool %q", p.Title, p.Tool)
		}
	}
	return &cat, nil
}

func slugSet(entries []CatalogEntry) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		s, err := validation.Slugify(e.Name)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", e.Name, err)
		}
		if _, dup := out[s]; dup {
			return nil, fmt.Errorf("duplicate slug %q", s)
		}
		out[s] = struct{}{}
	}
	return out, nil
}

// Catalog upserts the built-in categories and tools by slug. Running it
// again refreshes names and descriptions without duplicating rows.
func Catalog(db *gorm.DB) error {
	cat, err := LoadCatalog()
	if err != nil {
		return err
	}
	return SeedCatalog(db, cat)
}

// SeedCatalog upserts the categories and tools of cat.
func SeedCatalog(db *gorm.DB, cat *BuiltInCatalog) error {
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, item := range cat.Categories {
			s, err := validation.Slugify(item.Name)
			if err != nil {
				return err
			}
			row := models.Category{Name: item.Name, Slug: s, Description: item.Description}
			if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", s, err)
			}
		}
		for _, item := range cat.Tools {
			s, err := validation.Slugify(item.Name)
			if err != nil {
				return err
			}
			row := models.Tool{Name: item.Name, Slug: s, Description: item.Description}
			if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
				return fmt.Errorf("seed tool %s: %w", s, err)
			}
		}
		return nil
	})
}

// CuratedPrompts inserts the catalog's hand-written prompts that are not
// present yet, matched by title. It returns how many were inserted.
func CuratedPrompts(db *gorm.DB) (int, error) {
	cat, err := LoadCatalog()
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, cp := range cat.Prompts {
		var count int64
		if err := db.Model(&models.Prompt{}).Where("title = ?", cp.Title).Count(&count).Error; err != nil {
			return inserted, err
		}
		if count > 0 {
			continue
		}
		p := &models.Prompt{
			Title:      cp.Title,
			Category:   cp.Category,
			Tool:       cp.Tool,
			Tags:       models.NormalizeTags(cp.Tags),
			Body:       cp.Body,
			IsFeatured: cp.Featured,
		}
		if err := db.Omit("Liked").Create(p).Error; err != nil {
			return inserted, fmt.Errorf("seed prompt %q: %w", cp.Title, err)
		}
		inserted++
	}
	return inserted, nil
}
