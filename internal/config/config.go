package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=16"`

	MaxRetryAttempts     int `env:"MAX_RETRY_ATTEMPTS,default=5"`
	RetryBackoffFactor   int `env:"RETRY_BACKOFF_FACTOR,default=2"`
	InitialRetryDelaySec int `env:"INITIAL_RETRY_DELAY_SEC,default=10"`
	MaxRetryDelaySec     int `env:"MAX_RETRY_DELAY_SEC,default=900"`

	AttemptRetentionHours int `env:"ATTEMPT_RETENTION_HOURS,default=72"`
	SweepIntervalMin      int `env:"SWEEP_INTERVAL_MIN,default=60"`

	CacheTTLSec        int `env:"CACHE_TTL_SEC,default=3600"`
	DeliveryTimeoutSec int `env:"DELIVERY_TIMEOUT_SEC,default=10"`
	RateLimitPerSec    int `env:"RATE_LIMIT_PER_SEC,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// RetryPolicy materializes the retry knobs into the domain policy the
// delivery worker applies per failed attempt.
func (c *Config) RetryPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxRetries:    c.MaxRetryAttempts,
		BackoffFactor: c.RetryBackoffFactor,
		InitialDelay:  time.Duration(c.InitialRetryDelaySec) * time.Second,
		MaxDelay:      time.Duration(c.MaxRetryDelaySec) * time.Second,
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSec) * time.Second
}

func (c *Config) AttemptRetention() time.Duration {
	return time.Duration(c.AttemptRetentionHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}
