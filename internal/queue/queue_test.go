package queue

import (
	"testing"
	"time"
)

func TestDeliveryMessageValidate(t *testing.T) {
	t.Parallel()

	msg := DeliveryMessage{
		DeliveryID:     "d-1",
		SubscriptionID: "sub-1",
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	msg.DeliveryID = "  "
	if err := msg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing delivery id")
	}
}

func TestWaitQueueForDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delay time.Duration
		want  string
	}{
		{name: "first backoff step", delay: 10 * time.Second, want: "deliveries.wait.10s"},
		{name: "between tiers rounds up", delay: 15 * time.Second, want: "deliveries.wait.20s"},
		{name: "fourth backoff step", delay: 80 * time.Second, want: "deliveries.wait.80s"},
		{name: "capped backoff delay", delay: 15 * time.Minute, want: "deliveries.wait.1280s"},
		{name: "beyond last tier uses last", delay: 2 * time.Hour, want: "deliveries.wait.1280s"},
		{name: "tiny delay uses first tier", delay: time.Millisecond, want: "deliveries.wait.10s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := waitQueueForDelay(tt.delay); got != tt.want {
				t.Fatalf("waitQueueForDelay(%s) = %s, want %s", tt.delay, got, tt.want)
			}
		})
	}
}

// A short retry must never share a tier with a delay more than twice its
// length, otherwise it could sit behind the longer message at the queue head.
func TestWaitQueueTiersBoundSkew(t *testing.T) {
	t.Parallel()

	prev := time.Duration(0)
	for _, tier := range waitQueueTiers {
		if tier > prev*2 && prev != 0 {
			t.Fatalf("tier %s more than doubles previous tier %s", tier, prev)
		}
		if tier <= prev {
			t.Fatalf("tiers must be strictly increasing, got %s after %s", tier, prev)
		}
		prev = tier
	}
}

func TestExpirationMillis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delay time.Duration
		want  string
	}{
		{name: "ten seconds", delay: 10 * time.Second, want: "10000"},
		{name: "sub-millisecond floors to one", delay: 100 * time.Microsecond, want: "1"},
		{name: "fifteen minutes", delay: 15 * time.Minute, want: "900000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := expirationMillis(tt.delay); got != tt.want {
				t.Fatalf("expirationMillis(%s) = %s, want %s", tt.delay, got, tt.want)
			}
		})
	}
}
