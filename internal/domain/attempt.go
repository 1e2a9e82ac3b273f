package domain

import "time"

// DeliveryAttempt records a single HTTP try for a delivery. Attempts are
// append-only and never mutated once written; a nil StatusCode marks a
// transport-level failure where no HTTP response was received.
type DeliveryAttempt struct {
	ID            string
	DeliveryID    string
	AttemptNumber int
	StatusCode    *int
	ResponseBody  *string
	ErrorMessage  *string
	CreatedAt     time.Time
}
