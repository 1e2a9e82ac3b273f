package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptOutcome is the classified result of one HTTP delivery attempt.
// StatusCode is nil for transport-level failures.
type AttemptOutcome struct {
	Success      bool
	StatusCode   *int
	ResponseBody *string
	ErrorMessage *string
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	ListBySubscription(ctx context.Context, subscriptionID string, status *domain.Status, limit int) ([]domain.Delivery, error)
	RecordAttempt(ctx context.Context, deliveryID string, outcome AttemptOutcome, policy domain.RetryPolicy, now time.Time) (*domain.Delivery, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	model := deliveryModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

// ListBySubscription returns a subscription's deliveries newest first,
// optionally narrowed to one status.
func (r *GormDeliveryRepo) ListBySubscription(ctx context.Context, subscriptionID string, status *domain.Status, limit int) ([]domain.Delivery, error) {
	query := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var models []DeliveryModel
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]domain.Delivery, 0, len(models))
	for i := range models {
		deliveries = append(deliveries, *deliveryModelToDomain(&models[i]))
	}

	return deliveries, nil
}

// RecordAttempt applies one attempt transition under a row lock: it inserts
// the attempt row and updates status, attempt_count, last_attempt_at and
// next_retry_at in a single transaction. Concurrent redeliveries of the same
// job serialize on the lock, so attempt numbers stay gapless, and a job that
// finds the delivery already terminal writes nothing.
func (r *GormDeliveryRepo) RecordAttempt(
	ctx context.Context,
	deliveryID string,
	outcome AttemptOutcome,
	policy domain.RetryPolicy,
	now time.Time,
) (*domain.Delivery, error) {
	var result *domain.Delivery

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DeliveryModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", deliveryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		attemptAt := now.UTC()
		transition, ok := domain.NextTransition(model.Status, model.AttemptCount, outcome.Success, policy, attemptAt)
		if !ok {
			result = deliveryModelToDomain(&model)
			return nil
		}

		attempt := DeliveryAttemptModel{
			ID:            uuid.NewString(),
			DeliveryID:    model.ID,
			AttemptNumber: transition.AttemptNumber,
			StatusCode:    outcome.StatusCode,
			ResponseBody:  outcome.ResponseBody,
			ErrorMessage:  outcome.ErrorMessage,
			CreatedAt:     attemptAt,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		model.AttemptCount = transition.AttemptNumber
		model.LastAttemptAt = &attemptAt
		model.Status = transition.Status
		model.NextRetryAt = transition.NextRetryAt

		err = tx.Model(&DeliveryModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]any{
				"status":          model.Status,
				"attempt_count":   model.AttemptCount,
				"last_attempt_at": model.LastAttemptAt,
				"next_retry_at":   model.NextRetryAt,
			}).Error
		if err != nil {
			return err
		}

		result = deliveryModelToDomain(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
