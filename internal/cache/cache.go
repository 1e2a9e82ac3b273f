package cache

import "context"

// RoutingData is the subset of subscription state the delivery path needs:
// where to post and what to sign with.
type RoutingData struct {
	TargetURL string `json:"target_url"`
	SecretKey string `json:"secret_key,omitempty"`
}

// RoutingCache is a TTL-bounded side cache over subscription routing data.
// It is never the system of record: Get returns (nil, nil) on a miss and
// callers fall back to the durable store, so losing the cache only costs
// latency.
type RoutingCache interface {
	Get(ctx context.Context, subscriptionID string) (*RoutingData, error)
	Put(ctx context.Context, subscriptionID string, data RoutingData) error
	Invalidate(ctx context.Context, subscriptionID string) error
}
