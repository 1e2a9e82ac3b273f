package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/webhook-relay/internal/config"
	"github.com/kursadbilgin/webhook-relay/internal/infra/postgresql"
	"github.com/kursadbilgin/webhook-relay/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/webhook-relay/internal/infra/redis"
	"github.com/kursadbilgin/webhook-relay/internal/observability"
	"github.com/kursadbilgin/webhook-relay/internal/queue"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"github.com/kursadbilgin/webhook-relay/internal/sender"
	"github.com/kursadbilgin/webhook-relay/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rmq.Close()

	routingCache, err := infraredis.NewRedisRoutingCache(rdb, cfg.CacheTTL())
	if err != nil {
		logger.Fatal("routing cache initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	publisher := queue.NewRabbitMQPublisher(rmq)
	defer publisher.Close()

	consumer := queue.NewRabbitMQConsumer(rmq, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	metrics := observability.NewMetrics()

	worker, err := service.NewWorkerService(
		deliveryRepo,
		subscriptionRepo,
		routingCache,
		consumer,
		publisher,
		sender.NewHTTPSender(cfg.DeliveryTimeout()),
		rateLimiter,
		cfg.RetryPolicy(),
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	sweeper, err := service.NewRetentionSweeper(attemptRepo, cfg.AttemptRetention(), cfg.SweepInterval(), logger)
	if err != nil {
		logger.Fatal("sweeper initialization failed", zap.Error(err))
	}
	sweeper.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("webhook-relay worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Start(groupCtx) })
	g.Go(func() error { return sweeper.Start(groupCtx) })

	if err := g.Wait(); err != nil && groupCtx.Err() == nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}

	logger.Info("webhook-relay worker stopped")
}
