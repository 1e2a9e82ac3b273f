package queue

import (
	"fmt"
	"strings"
)

// DeliveryMessage is the broker payload for one delivery job. It carries
// identifiers only; payload and routing data are resolved by the worker.
type DeliveryMessage struct {
	DeliveryID     string `json:"deliveryId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

func (m DeliveryMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("deliveryId is required")
	}
	return nil
}
