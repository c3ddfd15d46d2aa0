package repository

import (
	"context"
	"time"

	"promptlime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository records webhook deliveries and applies their effects.
type PaymentRepository interface {
	ApplyProUpgrade(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error)
	RecordEvent(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository returns a PaymentRepository backed by db.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// ApplyProUpgrade records the event and marks the user Pro in one
// transaction. It returns false when the event was already processed. An
// unknown email rolls back so a redelivery after sign-up can still apply.
func (r *paymentRepository) ApplyProUpgrade(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error) {
	email = models.NormalizeEmail(email)
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := insertEvent(tx, eventID, eventType, email, at)
		if err != nil || !inserted {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{
				"is_pro":    true,
				"pro_since": gorm.Expr("COALESCE(pro_since, ?)", at),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", email)
		}
		applied = true
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, err
		}
		return false, models.NewInternalError(err)
	}
	return applied, nil
}

// RecordEvent stores an event that has no effect beyond acknowledgement.
func (r *paymentRepository) RecordEvent(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error) {
	inserted, err := insertEvent(r.db.WithContext(ctx), eventID, eventType, models.NormalizeEmail(email), at)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return inserted, nil
}

func insertEvent(db *gorm.DB, eventID, eventType, email string, at time.Time) (bool, error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PaymentEvent{
		EventID:     eventID,
		Type:        eventType,
		Email:       email,
		ProcessedAt: at,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
