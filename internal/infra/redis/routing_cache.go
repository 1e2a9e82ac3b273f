package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/webhook-relay/internal/cache"
	goredis "github.com/redis/go-redis/v9"
)

const (
	routingKeyPrefix  = "subscription:"
	defaultRoutingTTL = time.Hour
)

var _ cache.RoutingCache = (*RedisRoutingCache)(nil)

// RedisRoutingCache stores subscription routing data as JSON values with a
// fixed TTL staleness bound.
type RedisRoutingCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisRoutingCache(client *goredis.Client, ttl time.Duration) (*RedisRoutingCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultRoutingTTL
	}

	return &RedisRoutingCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *RedisRoutingCache) Get(ctx context.Context, subscriptionID string) (*cache.RoutingData, error) {
	key, err := routingKey(subscriptionID)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read routing cache: %w", err)
	}

	var data cache.RoutingData
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt entry is treated as a miss; the caller repopulates it.
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}

	return &data, nil
}

func (c *RedisRoutingCache) Put(ctx context.Context, subscriptionID string, data cache.RoutingData) error {
	key, err := routingKey(subscriptionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal routing data: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write routing cache: %w", err)
	}
	return nil
}

func (c *RedisRoutingCache) Invalidate(ctx context.Context, subscriptionID string) error {
	key, err := routingKey(subscriptionID)
	if err != nil {
		return err
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate routing cache: %w", err)
	}
	return nil
}

func routingKey(subscriptionID string) (string, error) {
	trimmed := strings.TrimSpace(subscriptionID)
	if trimmed == "" {
		return "", fmt.Errorf("subscription id is required")
	}
	return routingKeyPrefix + trimmed, nil
}
