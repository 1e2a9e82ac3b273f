package queue

import (
	"context"
	"fmt"
	"time"
)

const (
	// WorkQueue carries delivery jobs to workers.
	WorkQueue = "deliveries"
	// DeadLetterQueue receives messages rejected as unprocessable.
	DeadLetterQueue = "dlq.deliveries"

	waitQueuePrefix = "deliveries.wait"
)

// waitQueueTiers are the upper bounds of the delayed-retry wait queues.
// RabbitMQ expires messages only from the head of a queue, so a single wait
// queue with mixed per-message TTLs would let a long retry at the head hold
// back every shorter retry behind it. Tiers double, keeping TTLs inside one
// queue within a factor of two of each other; with a doubling backoff curve
// every distinct delay gets a tier of its own.
var waitQueueTiers = []time.Duration{
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	80 * time.Second,
	160 * time.Second,
	320 * time.Second,
	640 * time.Second,
	1280 * time.Second,
}

// waitQueueForDelay picks the wait queue whose tier covers the delay. Delays
// beyond the last tier land in it; the per-message TTL still expires them once
// they reach the head.
func waitQueueForDelay(delay time.Duration) string {
	for _, tier := range waitQueueTiers {
		if delay <= tier {
			return waitQueueName(tier)
		}
	}
	return waitQueueName(waitQueueTiers[len(waitQueueTiers)-1])
}

func waitQueueName(tier time.Duration) string {
	return fmt.Sprintf("%s.%ds", waitQueuePrefix, int64(tier/time.Second))
}

// Publisher enqueues delivery jobs. A positive delay defers visibility to
// workers by at least that duration; zero publishes immediately.
type Publisher interface {
	Publish(ctx context.Context, msg DeliveryMessage, delay time.Duration) error
	Close() error
}

// MessageHandler handles a consumed delivery job. A nil return acks the
// message; an error nacks it for redelivery.
type MessageHandler func(ctx context.Context, msg DeliveryMessage) error

// Consumer consumes delivery jobs from the work queue with at-least-once
// semantics.
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}
