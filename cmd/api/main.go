package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/webhook-relay/internal/config"
	"github.com/kursadbilgin/webhook-relay/internal/handler"
	"github.com/kursadbilgin/webhook-relay/internal/infra/postgresql"
	"github.com/kursadbilgin/webhook-relay/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/webhook-relay/internal/infra/redis"
	"github.com/kursadbilgin/webhook-relay/internal/observability"
	"github.com/kursadbilgin/webhook-relay/internal/queue"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"github.com/kursadbilgin/webhook-relay/internal/service"
	"github.com/kursadbilgin/webhook-relay/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

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

	publisher := queue.NewRabbitMQPublisher(rmq)
	defer publisher.Close()

	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	subscriptionService, err := service.NewSubscriptionService(subscriptionRepo, routingCache, logger)
	if err != nil {
		logger.Fatal("subscription service initialization failed", zap.Error(err))
	}

	deliveryService, err := service.NewDeliveryService(deliveryRepo, subscriptionRepo, attemptRepo, publisher, logger)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      "webhook-relay",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterSubscriptionRoutes(app, subscriptionService); err != nil {
		logger.Fatal("failed to register subscription routes", zap.Error(err))
	}
	if err := handler.RegisterDeliveryRoutes(app, deliveryService); err != nil {
		logger.Fatal("failed to register delivery routes", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb, rmq)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("api server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("webhook-relay api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}
