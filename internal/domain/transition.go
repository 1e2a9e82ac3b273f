package domain

import "time"

// AttemptTransition is the state change a delivery undergoes when one attempt
// finishes: the attempt's 1-based number, the resulting status, and the next
// retry time when the status is retrying.
type AttemptTransition struct {
	AttemptNumber int
	Status        Status
	NextRetryAt   *time.Time
}

// NextTransition computes the transition for a delivery whose current attempt
// just finished. The retry ordinal is the attempt count before this attempt,
// so the first attempt waits policy.Delay(0) on failure. It returns false when
// the delivery is already terminal, in which case nothing may be written.
func NextTransition(current Status, attemptCount int, success bool, policy RetryPolicy, attemptAt time.Time) (AttemptTransition, bool) {
	if current.IsTerminal() {
		return AttemptTransition{}, false
	}

	ordinal := attemptCount
	tr := AttemptTransition{AttemptNumber: ordinal + 1}

	switch {
	case success:
		tr.Status = StatusSuccess
	case policy.Exhausted(ordinal):
		tr.Status = StatusFailed
	default:
		tr.Status = StatusRetrying
		next := attemptAt.Add(policy.Delay(ordinal))
		tr.NextRetryAt = &next
	}

	return tr, true
}
