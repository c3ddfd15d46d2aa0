package repository

import (
	"context"
	"encoding/json"
	"strings"

	"promptlime/internal/cache"
	"promptlime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromptFilter narrows and orders prompt listings.
type PromptFilter struct {
	Category string
	Tool     string
	Tag      string
	Query    string
	Featured bool
	Sort     string
	Limit    int
	Offset   int
}

// PromptRepository defines persistence operations for prompts and their
// engagement counters.
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id uint) (*models.Prompt, error)
	List(ctx context.Context, f PromptFilter) ([]*models.Prompt, int64, error)
	Update(ctx context.Context, prompt *models.Prompt) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) (int64, error)
	IncrementCopyCount(ctx context.Context, id uint) (int64, error)
	SetLiked(ctx context.Context, userID, promptID uint, liked bool) (int64, error)
	IsLiked(ctx context.Context, userID, promptID uint) (bool, error)
	LikedPromptIDs(ctx context.Context, userID uint, promptIDs []uint) ([]uint, error)
	Totals(ctx context.Context) (PromptTotals, error)
}

// PromptTotals aggregates catalog engagement for the admin dashboard.
type PromptTotals struct {
	Prompts int64 `json:"prompts"`
	Copies  int64 `json:"copies"`
	Likes   int64 `json:"likes"`
	Views   int64 `json:"views"`
}

type promptRepository struct {
	db *gorm.DB
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	prompt.Tags = models.NormalizeTags(prompt.Tags)
	if err := r.db.WithContext(ctx).Omit("Liked").Create(prompt).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.FeaturedKey)
	return nil
}

// GetByID returns the prompt without the per-user Liked field.
func (r *promptRepository) GetByID(ctx context.Context, id uint) (*models.Prompt, error) {
	var prompt models.Prompt
	err := cache.Aside(ctx, cache.PromptKey(id), &prompt, cache.PromptTTL, func() error {
		if err := r.db.WithContext(ctx).First(&prompt, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Prompt", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	prompt.Liked = false
	return &prompt, nil
}

func (r *promptRepository) List(ctx context.Context, f PromptFilter) ([]*models.Prompt, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	q := r.db.WithContext(ctx).Model(&models.Prompt{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Tool != "" {
		q = q.Where("tool = ?", f.Tool)
	}
	if f.Featured {
		q = q.Where("is_featured = ?", true)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		// Tags are stored as a JSON array of normalized strings.
		quoted, _ := json.Marshal(tag)
		q = q.Where(`tags LIKE ? ESCAPE '\'`, likePattern(string(quoted)))
	}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(body) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var prompts []*models.Prompt
	if err := applyPromptSort(q, f.Sort).Limit(limit).Offset(offset).Find(&prompts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return prompts, total, nil
}

// applyPromptSort appends the ORDER BY clause for the requested sort.
func applyPromptSort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case models.PromptSortPopular:
		return db.Order("copy_count DESC, id DESC")
	case models.PromptSortLiked:
		return db.Order("likes DESC, id DESC")
	case models.PromptSortViewed:
		return db.Order("views DESC, id DESC")
	default: // "new" and anything unrecognized
		return db.Order("created_at DESC, id DESC")
	}
}

func (r *promptRepository) Update(ctx context.Context, prompt *models.Prompt) error {
	prompt.Tags = models.NormalizeTags(prompt.Tags)
	res := r.db.WithContext(ctx).Model(prompt).
		Select("title", "category", "tool", "tags", "body", "image_url", "is_featured").
		Updates(prompt)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Prompt", prompt.ID)
	}
	cache.Invalidate(ctx, cache.PromptKey(prompt.ID), cache.FeaturedKey)
	return nil
}

// Delete hard-deletes the prompt and its likes. Reports keep their dangling
// prompt_id.
func (r *promptRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Prompt{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Prompt", id)
		}
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PromptKey(id), cache.FeaturedKey)
	return nil
}

func (r *promptRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	return r.increment(ctx, id, "views")
}

func (r *promptRepository) IncrementCopyCount(ctx context.Context, id uint) (int64, error) {
	return r.increment(ctx, id, "copy_count")
}

// increment bumps one counter column with a single UPDATE and reads it back.
func (r *promptRepository) increment(ctx context.Context, id uint, column string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Prompt{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Prompt", id)
	}

	var value int64
	if err := r.db.WithContext(ctx).Model(&models.Prompt{}).
		Where("id = ?", id).
		Pluck(column, &value).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PromptKey(id))
	return value, nil
}

// SetLiked records or removes the caller's like and moves the counter only
// when the ledger actually changed, so repeated calls are no-ops.
func (r *promptRepository) SetLiked(ctx context.Context, userID, promptID uint, liked bool) (int64, error) {
	var likes int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("Prompt", promptID)
		}

		var delta string
		if liked {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{UserID: userID, PromptID: promptID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				delta = "likes + 1"
			}
		} else {
			res := tx.Where("user_id = ? AND prompt_id = ?", userID, promptID).Delete(&models.Like{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				delta = "CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END"
			}
		}

		if delta != "" {
			if err := tx.Model(&models.Prompt{}).Where("id = ?", promptID).
				UpdateColumn("likes", gorm.Expr(delta)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Prompt{}).Where("id = ?", promptID).Pluck("likes", &likes).Error
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return 0, err
		}
		return 0, models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PromptKey(promptID))
	return likes, nil
}

func (r *promptRepository) IsLiked(ctx context.Context, userID, promptID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND prompt_id = ?", userID, promptID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *promptRepository) LikedPromptIDs(ctx context.Context, userID uint, promptIDs []uint) ([]uint, error) {
	if len(promptIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND prompt_id IN ?", userID, promptIDs).
		Pluck("prompt_id", &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *promptRepository) Totals(ctx context.Context) (PromptTotals, error) {
	var t PromptTotals
	err := r.db.WithContext(ctx).Model(&models.Prompt{}).
		Select("COUNT(*) AS prompts, COALESCE(SUM(copy_count), 0) AS copies, " +
			"COALESCE(SUM(likes), 0) AS likes, COALESCE(SUM(views), 0) AS views").
		Scan(&t).Error
	if err != nil {
		return PromptTotals{}, models.NewInternalError(err)
	}
	return t, nil
}
