package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/cache"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"github.com/kursadbilgin/webhook-relay/internal/observability"
	"github.com/kursadbilgin/webhook-relay/internal/queue"
	"github.com/kursadbilgin/webhook-relay/internal/ratelimit"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"github.com/kursadbilgin/webhook-relay/internal/sender"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService drains the work queue and drives each delivery through one
// attempt: resolve routing, post the payload, record the classified outcome
// under the row lock, and re-enqueue with backoff when a retry is due.
type WorkerService struct {
	deliveries    repository.DeliveryRepository
	subscriptions repository.SubscriptionRepository
	routingCache  cache.RoutingCache
	consumer      queue.Consumer
	publisher     queue.Publisher
	sender        sender.Sender
	rateLimiter   ratelimit.RateLimiter
	policy        domain.RetryPolicy
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	now           func() time.Time
}

func NewWorkerService(
	deliveries repository.DeliveryRepository,
	subscriptions repository.SubscriptionRepository,
	routingCache cache.RoutingCache,
	consumer queue.Consumer,
	publisher queue.Publisher,
	snd sender.Sender,
	rateLimiter ratelimit.RateLimiter,
	policy domain.RetryPolicy,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if deliveries == nil || subscriptions == nil || consumer == nil || publisher == nil || snd == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		deliveries:    deliveries,
		subscriptions: subscriptions,
		routingCache:  routingCache,
		consumer:      consumer,
		publisher:     publisher,
		sender:        snd,
		rateLimiter:   rateLimiter,
		policy:        policy,
		logger:        logger,
		concurrency:   concurrency,
		now:           time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the work queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started", zap.Int("workerId", workerID))

			if err := s.consumer.Consume(groupCtx, s.processMessage); err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.DeliveryMessage) error {
	delivery, err := s.deliveries.GetByID(ctx, msg.DeliveryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("delivery not found, skipping",
				zap.String("deliveryId", msg.DeliveryID),
			)
			return nil
		}
		return fmt.Errorf("failed to load delivery: %w", err)
	}

	// Redelivered jobs for settled deliveries are acked and dropped.
	if delivery.Status.IsTerminal() {
		return nil
	}

	// A job that surfaced before its scheduled slot (or whose previous
	// re-enqueue was lost) goes back to the wait queue instead of burning
	// an attempt early.
	if delivery.Status == domain.StatusRetrying && delivery.NextRetryAt != nil {
		if remaining := delivery.NextRetryAt.Sub(s.now()); remaining > time.Second {
			return s.scheduleRetry(ctx, delivery, remaining)
		}
	}

	if s.metrics != nil {
		s.metrics.IncWorkerInFlight()
		defer s.metrics.DecWorkerInFlight()
	}

	routing, err := s.resolveRouting(ctx, delivery.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("subscription gone, dropping delivery",
				zap.String("deliveryId", delivery.ID),
				zap.String("subscriptionId", delivery.SubscriptionID),
			)
			return nil
		}
		return fmt.Errorf("failed to resolve routing: %w", err)
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, delivery.SubscriptionID); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendStart := s.now()
	result, sendErr := s.sender.Send(ctx, *routing, delivery.Payload)
	if s.metrics != nil {
		s.metrics.ObserveAttemptDuration(s.now().Sub(sendStart))
	}

	outcome := classifyOutcome(result, sendErr)
	updated, err := s.deliveries.RecordAttempt(ctx, delivery.ID, outcome, s.policy, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	switch updated.Status {
	case domain.StatusSuccess:
		if s.metrics != nil {
			s.metrics.IncDeliverySucceeded()
		}
		return nil

	case domain.StatusFailed:
		s.logger.Warn("delivery exhausted retries",
			zap.String("deliveryId", updated.ID),
			zap.String("subscriptionId", updated.SubscriptionID),
			zap.Int("attemptCount", updated.AttemptCount),
		)
		if s.metrics != nil {
			s.metrics.IncDeliveryFailed("retry_exhausted")
		}
		return nil

	case domain.StatusRetrying:
		delay := time.Duration(0)
		if updated.NextRetryAt != nil {
			delay = updated.NextRetryAt.Sub(s.now())
		}
		if err := s.scheduleRetry(ctx, updated, delay); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.IncRetryScheduled()
		}
		return nil

	default:
		return fmt.Errorf("unexpected delivery status %q after attempt", updated.Status)
	}
}

func (s *WorkerService) scheduleRetry(ctx context.Context, d *domain.Delivery, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	msg := queue.DeliveryMessage{
		DeliveryID:     d.ID,
		SubscriptionID: d.SubscriptionID,
	}
	if err := s.publisher.Publish(ctx, msg, delay); err != nil {
		return fmt.Errorf("failed to re-enqueue delivery %s: %w", d.ID, err)
	}

	s.logger.Info("delivery scheduled for retry",
		zap.String("deliveryId", d.ID),
		zap.Int("attemptCount", d.AttemptCount),
		zap.Duration("delay", delay),
	)
	return nil
}

// resolveRouting looks up the target endpoint cache-aside: on a miss the
// durable subscription row is loaded and the cache repopulated.
func (s *WorkerService) resolveRouting(ctx context.Context, subscriptionID string) (*cache.RoutingData, error) {
	if s.routingCache != nil {
		routing, err := s.routingCache.Get(ctx, subscriptionID)
		if err != nil {
			s.logger.Warn("routing cache read failed",
				zap.String("subscriptionId", subscriptionID),
				zap.Error(err),
			)
		} else if routing != nil {
			if s.metrics != nil {
				s.metrics.IncRoutingCacheHit()
			}
			return routing, nil
		}
	}

	if s.metrics != nil {
		s.metrics.IncRoutingCacheMiss()
	}

	subscription, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	routing := routingFromSubscription(subscription)
	if s.routingCache != nil {
		if err := s.routingCache.Put(ctx, subscriptionID, routing); err != nil {
			s.logger.Warn("routing cache write failed",
				zap.String("subscriptionId", subscriptionID),
				zap.Error(err),
			)
		}
	}

	return &routing, nil
}

func routingFromSubscription(sub *domain.Subscription) cache.RoutingData {
	routing := cache.RoutingData{TargetURL: sub.TargetURL}
	if sub.SecretKey != nil {
		routing.SecretKey = strings.TrimSpace(*sub.SecretKey)
	}
	return routing
}

// classifyOutcome maps a sender result to the attempt record fields. A 2xx
// response succeeds; a non-2xx keeps its status and body snippet; a
// transport failure carries only the error message.
func classifyOutcome(result *sender.Result, sendErr error) repository.AttemptOutcome {
	if sendErr == nil && result != nil {
		outcome := repository.AttemptOutcome{Success: true}
		statusCode := result.StatusCode
		outcome.StatusCode = &statusCode
		if body := strings.TrimSpace(result.Body); body != "" {
			value := result.Body
			outcome.ResponseBody = &value
		}
		return outcome
	}

	outcome := repository.AttemptOutcome{Success: false}
	if sendErr != nil {
		message := sendErr.Error()
		outcome.ErrorMessage = &message

		if sendError, ok := sender.AsSendError(sendErr); ok {
			if sendError.StatusCode > 0 {
				statusCode := sendError.StatusCode
				outcome.StatusCode = &statusCode
			}
			if body := strings.TrimSpace(sendError.Body); body != "" {
				value := sendError.Body
				outcome.ResponseBody = &value
			}
		}
	}

	return outcome
}
