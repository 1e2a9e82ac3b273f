package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a delivery.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRetrying Status = "retrying"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRetrying, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further attempts may be made.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Delivery tracks one event on its way to one subscription endpoint.
// The payload is immutable after creation; only the delivery worker mutates
// status, attempt count, and the retry timestamps.
type Delivery struct {
	ID             string
	SubscriptionID string
	Payload        []byte
	Status         Status
	AttemptCount   int
	LastAttemptAt  *time.Time
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *Delivery) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: delivery is required", ErrValidation)
	}
	if strings.TrimSpace(d.SubscriptionID) == "" {
		return fmt.Errorf("%w: subscription id is required", ErrValidation)
	}
	if len(d.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if !json.Valid(d.Payload) {
		return fmt.Errorf("%w: payload must be a valid JSON document", ErrValidation)
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, d.Status)
	}
	return nil
}
