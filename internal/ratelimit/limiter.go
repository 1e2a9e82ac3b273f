package ratelimit

import "context"

// RateLimiter throttles outbound delivery attempts per subscription, so one
// busy subscriber cannot monopolize worker throughput.
type RateLimiter interface {
	Allow(ctx context.Context, subscriptionID string) (bool, error)
	Wait(ctx context.Context, subscriptionID string) error
}
