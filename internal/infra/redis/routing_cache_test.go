package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/webhook-relay/internal/cache"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRoutingCachePutGetRoundtrip(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)
	rc, err := NewRedisRoutingCache(client, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisRoutingCache() error = %v", err)
	}

	want := cache.RoutingData{
		TargetURL: "https://example.com/hooks",
		SecretKey: "whsec_abc",
	}
	if err := rc.Put(context.Background(), "sub-1", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := rc.Get(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned a miss for a cached subscription")
	}
	if *got != want {
		t.Fatalf("Get() = %+v, want %+v", *got, want)
	}
}

func TestRoutingCacheMissReturnsNil(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)
	rc, err := NewRedisRoutingCache(client, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisRoutingCache() error = %v", err)
	}

	got, err := rc.Get(context.Background(), "sub-unknown")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() = %+v, want miss", got)
	}
}

func TestRoutingCacheEntryExpires(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedisClient(t)
	rc, err := NewRedisRoutingCache(client, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRoutingCache() error = %v", err)
	}

	data := cache.RoutingData{TargetURL: "https://example.com/hooks"}
	if err := rc.Put(context.Background(), "sub-ttl", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := rc.Get(context.Background(), "sub-ttl")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() after TTL = %+v, want miss", got)
	}
}

func TestRoutingCacheInvalidate(t *testing.T) {
	t.Parallel()

	_, client := newTestRedisClient(t)
	rc, err := NewRedisRoutingCache(client, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisRoutingCache() error = %v", err)
	}

	data := cache.RoutingData{TargetURL: "https://example.com/hooks"}
	if err := rc.Put(context.Background(), "sub-2", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := rc.Invalidate(context.Background(), "sub-2"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	got, err := rc.Get(context.Background(), "sub-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() after invalidate = %+v, want miss", got)
	}
}

func TestRoutingCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedisClient(t)
	rc, err := NewRedisRoutingCache(client, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisRoutingCache() error = %v", err)
	}

	if err := mr.Set("subscription:sub-bad", "{not json"); err != nil {
		t.Fatalf("miniredis Set() error = %v", err)
	}

	got, err := rc.Get(context.Background(), "sub-bad")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() on corrupt entry = %+v, want miss", got)
	}
	if mr.Exists("subscription:sub-bad") {
		t.Fatal("corrupt entry should be evicted")
	}
}
