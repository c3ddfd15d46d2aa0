package repository

import (
	"context"
	"errors"
	"time"

	"promptlime/internal/models"

	"gorm.io/gorm"
)

// Identity is the profile asserted by the identity provider at sign-in.
type Identity struct {
	Email string
	Name  string
	Image string
	Admin bool
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertIdentity(ctx context.Context, id Identity) (*models.User, error)
	ResetCopies(ctx context.Context, id uint, monthStart, at time.Time) (bool, error)
	IncrementCopiesBelow(ctx context.Context, id uint, limit int) (int, bool, error)
	SetPro(ctx context.Context, id uint, pro bool, at time.Time) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query string, limit, offset int) ([]models.User, int64, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (total int64, pro int64, err error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// UpsertIdentity creates the user on first sign-in and refreshes the profile
// afterwards. Admin is only ever granted here, never revoked.
func (r *userRepository) UpsertIdentity(ctx context.Context, id Identity) (*models.User, error) {
	email := models.NormalizeEmail(id.Email)
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &models.User{Email: email, Name: id.Name, Image: id.Image, IsAdmin: id.Admin}
		err := r.db.WithContext(ctx).Create(user).Error
		if err == nil {
			return user, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, models.NewInternalError(err)
		}
		// Lost a race with a concurrent first sign-in.
		user, err = r.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, models.NewInternalError(errors.New("user missing after unique conflict"))
		}
	}

	updates := map[string]interface{}{}
	if id.Name != "" && id.Name != user.Name {
		updates["name"] = id.Name
	}
	if id.Image != "" && id.Image != user.Image {
		updates["image"] = id.Image
	}
	if id.Admin && !user.IsAdmin {
		updates["is_admin"] = true
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, user.ID)
}

// ResetCopies zeroes the counter only if it still belongs to a month before
// monthStart, so a reset racing a fresh increment is a no-op. It reports
// whether this call did the reset.
func (r *userRepository) ResetCopies(ctx context.Context, id uint, monthStart, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND (last_reset IS NULL OR last_reset < ?)", id, monthStart.UTC()).
		Updates(map[string]interface{}{"copy_count": 0, "last_reset": at.UTC()})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// IncrementCopiesBelow adds one copy only while the counter is under limit,
// in a single conditional UPDATE. It returns the stored count and whether
// the row changed.
func (r *userRepository) IncrementCopiesBelow(ctx context.Context, id uint, limit int) (int, bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND copy_count < ?", id, limit).
		UpdateColumn("copy_count", gorm.Expr("copy_count + 1"))
	if res.Error != nil {
		return 0, false, models.NewInternalError(res.Error)
	}

	var count int
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Pluck("copy_count", &count).Error; err != nil {
		return 0, false, models.NewInternalError(err)
	}
	return count, res.RowsAffected == 1, nil
}

func (r *userRepository) SetPro(ctx context.Context, id uint, pro bool, at time.Time) error {
	updates := map[string]interface{}{"is_pro": pro}
	if pro {
		updates["pro_since"] = at
	} else {
		updates["pro_since"] = nil
	}
	return r.updateByID(ctx, id, updates)
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	return r.updateByID(ctx, id, map[string]interface{}{"is_admin": admin})
}

func (r *userRepository) updateByID(ctx context.Context, id uint, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// Delete removes the user with their likes and inbox. Liked prompts lose the
// like; reports they filed stay in the queue without a reporter.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var likedPromptIDs []uint
		if err := tx.Model(&models.Like{}).Where("user_id = ?", id).Pluck("prompt_id", &likedPromptIDs).Error; err != nil {
			return err
		}
		if len(likedPromptIDs) > 0 {
			if err := tx.Model(&models.Prompt{}).
				Where("id IN ?", likedPromptIDs).
				UpdateColumn("likes", gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("reporter_id = ?", id).
			UpdateColumn("reporter_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, query string, limit, offset int) ([]models.User, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.User{})
	if query != "" {
		pattern := likePattern(query)
		q = q.Where(`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("email").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, int64, error) {
	var total, pro int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_pro = ?", true).Count(&pro).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return total, pro, nil
}
