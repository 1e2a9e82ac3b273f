package repository

import (
	"context"
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	GetByDeliveryID(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) GetByDeliveryID(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Order("attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}

// DeleteOlderThan purges attempt rows created before the cutoff. Delivery
// rows are never touched; re-running with no eligible rows is a no-op.
func (r *GormAttemptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&DeliveryAttemptModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
