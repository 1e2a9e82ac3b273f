package repository

import (
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/domain"
)

// SubscriptionModel is the persistence model for the subscriptions table.
// The search vector is derived by the repository inside the write
// transaction, not by a model hook.
type SubscriptionModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	Name      string  `gorm:"type:varchar(255);not null"`
	TargetURL string  `gorm:"column:target_url;type:text;not null"`
	SecretKey *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// DeliveryModel is the persistence model for webhook_deliveries.
type DeliveryModel struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	SubscriptionID string        `gorm:"type:uuid;not null"`
	Payload        []byte        `gorm:"type:jsonb;not null"`
	Status         domain.Status `gorm:"type:varchar(20);not null"`
	AttemptCount   int           `gorm:"not null;default:0"`
	LastAttemptAt  *time.Time
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	DeliveryID    string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    *int    `gorm:"type:int"`
	ResponseBody  *string `gorm:"type:text"`
	ErrorMessage  *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}

	return &SubscriptionModel{
		ID:        s.ID,
		Name:      s.Name,
		TargetURL: s.TargetURL,
		SecretKey: s.SecretKey,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	return &domain.Subscription{
		ID:        m.ID,
		Name:      m.Name,
		TargetURL: m.TargetURL,
		SecretKey: m.SecretKey,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func deliveryModelFromDomain(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}

	return &DeliveryModel{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		Payload:        d.Payload,
		Status:         d.Status,
		AttemptCount:   d.AttemptCount,
		LastAttemptAt:  d.LastAttemptAt,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		Payload:        m.Payload,
		Status:         m.Status,
		AttemptCount:   m.AttemptCount,
		LastAttemptAt:  m.LastAttemptAt,
		NextRetryAt:    m.NextRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		DeliveryID:    m.DeliveryID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		ResponseBody:  m.ResponseBody,
		ErrorMessage:  m.ErrorMessage,
		CreatedAt:     m.CreatedAt,
	}
}
