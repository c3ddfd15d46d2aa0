package repository

import (
	"context"

	"promptlime/internal/cache"
	"promptlime/internal/models"

	"gorm.io/gorm"
)

// CatalogRepository stores the category and tool taxonomies.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uint) error
	CategoryExists(ctx context.Context, slug string) (bool, error)
	ListTools(ctx context.Context) ([]models.Tool, error)
	CreateTool(ctx context.Context, t *models.Tool) error
	DeleteTool(ctx context.Context, id uint) error
	ToolExists(ctx context.Context, slug string) (bool, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository returns a CatalogRepository backed by db.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := cache.Aside(ctx, cache.CategoriesKey, &out, cache.CatalogTTL, func() error {
		return listByName(ctx, r.db, &out)
	})
	return out, err
}

func (r *catalogRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := createUnique(ctx, r.db, c, "Category with this name already exists"); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.CategoriesKey)
	return nil
}

func (r *catalogRepository) DeleteCategory(ctx context.Context, id uint) error {
	if err := deleteByID(ctx, r.db, &models.Category{}, "Category", id); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.CategoriesKey)
	return nil
}

func (r *catalogRepository) CategoryExists(ctx context.Context, slug string) (bool, error) {
	return existsBySlug(ctx, r.db, &models.Category{}, slug)
}

func (r *catalogRepository) ListTools(ctx context.Context) ([]models.Tool, error) {
	var out []models.Tool
	err := cache.Aside(ctx, cache.ToolsKey, &out, cache.CatalogTTL, func() error {
		return listByName(ctx, r.db, &out)
	})
	return out, err
}

func (r *catalogRepository) CreateTool(ctx context.Context, t *models.Tool) error {
	if err := createUnique(ctx, r.db, t, "Tool with this name already exists"); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.ToolsKey)
	return nil
}

func (r *catalogRepository) DeleteTool(ctx context.Context, id uint) error {
	if err := deleteByID(ctx, r.db, &models.Tool{}, "Tool", id); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.ToolsKey)
	return nil
}

func (r *catalogRepository) ToolExists(ctx context.Context, slug string) (bool, error) {
	return existsBySlug(ctx, r.db, &models.Tool{}, slug)
}

func listByName(ctx context.Context, db *gorm.DB, dest interface{}) error {
	if err := db.WithContext(ctx).Order("name ASC").Find(dest).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func createUnique(ctx context.Context, db *gorm.DB, value interface{}, conflictMsg string) error {
	if err := db.WithContext(ctx).Create(value).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(conflictMsg)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, resource string, id uint) error {
	res := db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

func existsBySlug(ctx context.Context, db *gorm.DB, model interface{}, slug string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}
