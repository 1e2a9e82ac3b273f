package domain

import "time"

// RetryPolicy bounds delivery retries and shapes the backoff curve.
// The ordinal is the zero-based count of attempts already made before the
// current one, so the first retry waits InitialDelay.
type RetryPolicy struct {
	MaxRetries    int
	BackoffFactor int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
}

// Delay returns min(InitialDelay * BackoffFactor^ordinal, MaxDelay).
func (p RetryPolicy) Delay(ordinal int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	delay := p.InitialDelay
	for i := 0; i < ordinal; i++ {
		delay *= time.Duration(factor)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether a failure at the given ordinal ends the delivery.
func (p RetryPolicy) Exhausted(ordinal int) bool {
	return ordinal >= p.MaxRetries
}
