package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, msg DeliveryMessage, delay time.Duration) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid delivery message: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery message: %w", err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     msg.DeliveryID,
		CorrelationId: msg.CorrelationID,
		Body:          payload,
	}

	queueName := WorkQueue
	if delay > 0 {
		// A delayed job parks in the wait queue tier covering its delay and
		// dead-letters back into the work queue when its TTL expires.
		queueName = waitQueueForDelay(delay)
		publishing.Expiration = expirationMillis(delay)
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to queue %q: %w", queueName, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// expirationMillis renders a delay as the per-message TTL string RabbitMQ
// expects, with a 1ms floor.
func expirationMillis(delay time.Duration) string {
	millis := delay.Milliseconds()
	if millis < 1 {
		millis = 1
	}
	return strconv.FormatInt(millis, 10)
}
