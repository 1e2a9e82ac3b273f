package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/webhook-relay/internal/cache"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"go.uber.org/zap"
)

// SubscriptionService manages subscription lifecycle and keeps the routing
// cache in step with it. Cache writes are best effort: the database row is
// the system of record and workers fall back to it on a miss.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	routingCache  cache.RoutingCache
	logger        *zap.Logger
}

func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	routingCache cache.RoutingCache,
	logger *zap.Logger,
) (*SubscriptionService, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionService{
		subscriptions: subscriptions,
		routingCache:  routingCache,
		logger:        logger,
	}, nil
}

func (s *SubscriptionService) Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := prepareSubscription(sub, true); err != nil {
		return nil, err
	}

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.warmRoutingCache(ctx, sub)
	return sub, nil
}

func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return s.subscriptions.GetByID(ctx, id)
}

func (s *SubscriptionService) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.subscriptions.List(ctx)
}

func (s *SubscriptionService) Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := prepareSubscription(sub, false); err != nil {
		return nil, err
	}

	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.warmRoutingCache(ctx, sub)
	return sub, nil
}

// Delete removes the subscription; its deliveries and attempts cascade at
// the database level. The cached routing entry is invalidated so in-flight
// workers stop posting to the dead endpoint within one cache round-trip.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}

	if err := s.subscriptions.Delete(ctx, id); err != nil {
		return err
	}

	if s.routingCache != nil {
		if err := s.routingCache.Invalidate(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate routing cache",
				zap.String("subscriptionId", id),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *SubscriptionService) warmRoutingCache(ctx context.Context, sub *domain.Subscription) {
	if s.routingCache == nil || sub == nil {
		return
	}

	if err := s.routingCache.Put(ctx, sub.ID, routingFromSubscription(sub)); err != nil {
		s.logger.Warn("failed to warm routing cache",
			zap.String("subscriptionId", sub.ID),
			zap.Error(err),
		)
	}
}

func prepareSubscription(sub *domain.Subscription, assignID bool) error {
	if sub == nil {
		return fmt.Errorf("%w: subscription is required", domain.ErrValidation)
	}

	sub.Name = strings.TrimSpace(sub.Name)
	sub.TargetURL = strings.TrimSpace(sub.TargetURL)
	sub.SecretKey = normalizeOptionalString(sub.SecretKey)

	sub.ID = strings.TrimSpace(sub.ID)
	if assignID && sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if !assignID && sub.ID == "" {
		return fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}

	return sub.Validate()
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
