package service

import (
	"context"
	"strings"

	"promptlime/internal/models"
	"promptlime/internal/repository"
	"promptlime/internal/validation"
)

// CatalogEntryInput names a new category or tool.
type CatalogEntryInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// CatalogService manages the category and tool taxonomies.
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) ListTools(ctx context.Context) ([]models.Tool, error) {
	return s.repo.ListTools(ctx)
}

// CreateCategory derives the slug from the name. A duplicate slug is a
// Conflict.
func (s *CatalogService) CreateCategory(ctx context.Context, in CatalogEntryInput) (*models.Category, error) {
	name, slug, err := prepareEntry(in)
	if err != nil {
		return nil, err
	}
	c := &models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description)}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) CreateTool(ctx context.Context, in CatalogEntryInput) (*models.Tool, error) {
	name, slug, err := prepareEntry(in)
	if err != nil {
		return nil, err
	}
	t := &models.Tool{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description)}
	if err := s.repo.CreateTool(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *CatalogService) DeleteTool(ctx context.Context, id uint) error {
	return s.repo.DeleteTool(ctx, id)
}

// ValidateRefs checks that a prompt's category and tool slugs exist.
func (s *CatalogService) ValidateRefs(ctx context.Context, category, tool string) error {
	ok, err := s.repo.CategoryExists(ctx, category)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError("Unknown category " + category)
	}
	ok, err = s.repo.ToolExists(ctx, tool)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError("Unknown tool " + tool)
	}
	return nil
}

func prepareEntry(in CatalogEntryInput) (string, string, error) {
	if err := validation.Struct(in); err != nil {
		return "", "", err
	}
	name := strings.TrimSpace(in.Name)
	slug, err := validation.Slugify(name)
	if err != nil {
		return "", "", err
	}
	return name, slug, nil
}
