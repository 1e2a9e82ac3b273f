package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"github.com/kursadbilgin/webhook-relay/internal/queue"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DeliveryService accepts ingested events, persists them as pending
// deliveries, and hands them to the queue. Reads project delivery state
// together with its attempt history.
type DeliveryService struct {
	deliveries    repository.DeliveryRepository
	subscriptions repository.SubscriptionRepository
	attempts      repository.AttemptRepository
	publisher     queue.Publisher
	logger        *zap.Logger
}

// DeliveryView is the status projection for one delivery: the current row
// plus its append-only attempt history in attempt order.
type DeliveryView struct {
	Delivery domain.Delivery
	Attempts []domain.DeliveryAttempt
}

func NewDeliveryService(
	deliveries repository.DeliveryRepository,
	subscriptions repository.SubscriptionRepository,
	attempts repository.AttemptRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*DeliveryService, error) {
	if deliveries == nil || subscriptions == nil || attempts == nil || publisher == nil {
		return nil, fmt.Errorf("delivery service dependencies are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		deliveries:    deliveries,
		subscriptions: subscriptions,
		attempts:      attempts,
		publisher:     publisher,
		logger:        logger,
	}, nil
}

// Ingest persists a pending delivery for the subscription and enqueues it.
// The row is committed before the publish, so a broker outage leaves a
// pending row behind rather than losing the event.
func (s *DeliveryService) Ingest(ctx context.Context, subscriptionID string, payload []byte) (*domain.Delivery, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}

	if _, err := s.subscriptions.GetByID(ctx, subscriptionID); err != nil {
		return nil, err
	}

	delivery := &domain.Delivery{
		ID:             uuid.NewString(),
		SubscriptionID: subscriptionID,
		Payload:        payload,
		Status:         domain.StatusPending,
		AttemptCount:   0,
	}
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	msg := queue.DeliveryMessage{
		DeliveryID:     delivery.ID,
		SubscriptionID: delivery.SubscriptionID,
	}
	if err := s.publisher.Publish(ctx, msg, 0); err != nil {
		// The pending row survives; a requeue sweep or manual redrive can
		// pick it up once the broker is back.
		s.logger.Error("failed to publish delivery",
			zap.String("deliveryId", delivery.ID),
			zap.String("subscriptionId", delivery.SubscriptionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to publish delivery: %w", err)
	}

	return delivery, nil
}

// GetStatus returns the delivery together with its attempt history.
func (s *DeliveryService) GetStatus(ctx context.Context, id string) (*DeliveryView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}

	delivery, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.GetByDeliveryID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery attempts: %w", err)
	}

	return &DeliveryView{
		Delivery: *delivery,
		Attempts: attempts,
	}, nil
}

// ListBySubscription returns the most recent deliveries for a subscription,
// newest first, optionally filtered to a single status. The limit is clamped
// to [1, 100] with 20 as the default.
func (s *DeliveryService) ListBySubscription(ctx context.Context, subscriptionID string, status *domain.Status, limit int) ([]domain.Delivery, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	if status != nil && !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *status)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if _, err := s.subscriptions.GetByID(ctx, subscriptionID); err != nil {
		return nil, err
	}

	return s.deliveries.ListBySubscription(ctx, subscriptionID, status, limit)
}
