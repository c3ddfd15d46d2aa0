package repository

import (
	"context"
	"time"

	"promptlime/internal/models"

	"gorm.io/gorm"
)

const notificationBatchSize = 500

// NotificationRepository stores per-recipient inbox entries.
type NotificationRepository interface {
	CreateForAll(ctx context.Context, title, message string) (int64, error)
	CreateForUser(ctx context.Context, userID uint, title, message string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) error
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a NotificationRepository backed by db.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateForAll snapshots the current user IDs and writes one entry per user
// in the same transaction. Users created afterwards receive nothing.
func (r *notificationRepository) CreateForAll(ctx context.Context, title, message string) (int64, error) {
	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userIDs []uint
		if err := tx.Model(&models.User{}).Order("id").Pluck("id", &userIDs).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		rows := make([]models.Notification, 0, len(userIDs))
		for _, id := range userIDs {
			rows = append(rows, models.Notification{UserID: id, Title: title, Message: message})
		}
		res := tx.CreateInBatches(&rows, notificationBatchSize)
		if res.Error != nil {
			return res.Error
		}
		created = int64(len(rows))
		return nil
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return created, nil
}

// CreateForUser writes a single entry after checking the recipient exists.
func (r *notificationRepository) CreateForUser(ctx context.Context, userID uint, title, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Title: title, Message: message}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("User", userID)
		}
		return tx.Create(n).Error
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var out []models.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return out, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// MarkRead flips is_read for the recipient's own entry. Marking an already
// read entry succeeds without changing read_at.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint, at time.Time) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error; err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Notification", id)
		}
		return models.NewInternalError(err)
	}
	if n.IsRead {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		UpdateColumns(map[string]interface{}{"is_read": true, "read_at": at}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		UpdateColumns(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}
