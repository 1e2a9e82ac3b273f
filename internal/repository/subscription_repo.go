package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Update(ctx context.Context, s *domain.Subscription) error
	Delete(ctx context.Context, id string) error
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	model := subscriptionModelFromDomain(s)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return refreshSearchVector(tx, model.ID)
	})
	if err != nil {
		return err
	}

	if s != nil {
		*s = *subscriptionModelToDomain(model)
	}
	return nil
}

func (r *GormSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriptionModelToDomain(&model), nil
}

func (r *GormSubscriptionRepo) List(ctx context.Context) ([]domain.Subscription, error) {
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subscriptions := make([]domain.Subscription, 0, len(models))
	for i := range models {
		subscriptions = append(subscriptions, *subscriptionModelToDomain(&models[i]))
	}

	return subscriptions, nil
}

// Update rewrites the mutable columns and copies the stored row back into s,
// so callers see the database-owned timestamps. Map-based Updates bypasses
// gorm's automatic updated_at touch, so the column is set explicitly.
func (r *GormSubscriptionRepo) Update(ctx context.Context, s *domain.Subscription) error {
	if s == nil {
		return domain.ErrNotFound
	}

	var model SubscriptionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SubscriptionModel{}).
			Where("id = ?", s.ID).
			Updates(map[string]any{
				"name":       s.Name,
				"target_url": s.TargetURL,
				"secret_key": s.SecretKey,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := refreshSearchVector(tx, s.ID); err != nil {
			return err
		}
		return tx.First(&model, "id = ?", s.ID).Error
	})
	if err != nil {
		return err
	}

	*s = *subscriptionModelToDomain(&model)
	return nil
}

// Delete removes a subscription; the database cascades to its deliveries and
// their attempts.
func (r *GormSubscriptionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&SubscriptionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// refreshSearchVector derives the tsvector index column in the same
// transaction as the row write, replacing the ORM-hook approach.
func refreshSearchVector(tx *gorm.DB, id string) error {
	return tx.Exec(
		`UPDATE subscriptions SET search_vector = to_tsvector('english', name) WHERE id = ?`,
		id,
	).Error
}
