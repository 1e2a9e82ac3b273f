package sender

import (
	"context"

	"github.com/kursadbilgin/webhook-relay/internal/cache"
)

// Result captures a 2xx endpoint response for the attempt record.
type Result struct {
	StatusCode int
	Body       string
}

// Sender posts a delivery payload to a subscription endpoint. Non-2xx
// responses and transport failures are returned as *SendError.
type Sender interface {
	Send(ctx context.Context, routing cache.RoutingData, payload []byte) (*Result, error)
}
