package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/observability"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Hour
	defaultRetention     = 72 * time.Hour
)

// RetentionSweeper periodically deletes attempt records older than the
// retention horizon. Delivery rows are kept; only the attempt history is
// bounded.
type RetentionSweeper struct {
	attempts  repository.AttemptRepository
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewRetentionSweeper(
	attempts repository.AttemptRepository,
	retention time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) (*RetentionSweeper, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetentionSweeper{
		attempts:  attempts,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *RetentionSweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *RetentionSweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("initial retention sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retention sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention).UTC()

	deleted, err := s.attempts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired attempts: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("swept expired delivery attempts",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	if s.metrics != nil {
		s.metrics.AddAttemptsSwept(deleted)
	}

	return nil
}
