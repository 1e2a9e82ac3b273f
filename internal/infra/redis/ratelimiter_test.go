package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)

	fixedNow := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(client, 2, func() time.Time { return fixedNow }, nil)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "sub-1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Allow() call %d = false, want true", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("Allow() over limit = true, want false")
	}
}

func TestRedisRateLimiterAllowPerSubscription(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)

	fixedNow := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(client, 1, func() time.Time { return fixedNow }, nil)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if allowed, err := limiter.Allow(context.Background(), "sub-a"); err != nil || !allowed {
		t.Fatalf("Allow(sub-a) = %v, %v; want true, nil", allowed, err)
	}
	if allowed, err := limiter.Allow(context.Background(), "sub-a"); err != nil || allowed {
		t.Fatalf("Allow(sub-a) second call = %v, %v; want false, nil", allowed, err)
	}

	// A different subscription has its own window.
	if allowed, err := limiter.Allow(context.Background(), "sub-b"); err != nil || !allowed {
		t.Fatalf("Allow(sub-b) = %v, %v; want true, nil", allowed, err)
	}
}

func TestRedisRateLimiterWait(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)

	current := time.Unix(1_700_000_000, 0)
	sleeps := 0
	limiter, err := newRedisRateLimiter(
		client,
		1,
		func() time.Time { return current },
		func(ctx context.Context, d time.Duration) error {
			sleeps++
			// Advance into the next window so the retry is admitted.
			current = current.Add(time.Second)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if err := limiter.Wait(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := limiter.Wait(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if sleeps == 0 {
		t.Fatal("second Wait() should have slept at least once")
	}
}

func TestRedisRateLimiterWaitContextCanceled(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)

	fixedNow := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(
		client,
		1,
		func() time.Time { return fixedNow },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if err := limiter.Wait(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, "sub-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestNewRedisRateLimiterRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisRateLimiter(nil, 10); err == nil {
		t.Fatal("expected error for nil client")
	}

	_, client := newTestRedisClient(t)
	limiter, err := NewRedisRateLimiter(client, 0)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	if limiter.limitPerSec != defaultLimitPerSec {
		t.Fatalf("limitPerSec = %d, want default %d", limiter.limitPerSec, defaultLimitPerSec)
	}
}
