package domain

import (
	"errors"
	"testing"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "valid lowercase", input: "success", want: StatusSuccess},
		{name: "valid uppercase with spaces", input: " RETRYING ", want: StatusRetrying},
		{name: "invalid", input: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   bool
	}{
		{status: StatusPending, want: false},
		{status: StatusRetrying, want: false},
		{status: StatusSuccess, want: true},
		{status: StatusFailed, want: true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Fatalf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDeliveryValidate(t *testing.T) {
	t.Parallel()

	base := Delivery{
		SubscriptionID: "sub-1",
		Payload:        []byte(`{"event":"order.created","id":42}`),
		Status:         StatusPending,
	}

	tests := []struct {
		name    string
		mutate  func(*Delivery)
		wantErr bool
	}{
		{
			name:   "valid delivery",
			mutate: func(d *Delivery) {},
		},
		{
			name: "missing subscription id",
			mutate: func(d *Delivery) {
				d.SubscriptionID = ""
			},
			wantErr: true,
		},
		{
			name: "empty payload",
			mutate: func(d *Delivery) {
				d.Payload = nil
			},
			wantErr: true,
		},
		{
			name: "malformed payload",
			mutate: func(d *Delivery) {
				d.Payload = []byte(`{"event":`)
			},
			wantErr: true,
		},
		{
			name: "invalid status",
			mutate: func(d *Delivery) {
				d.Status = Status("queued")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestSubscriptionValidate(t *testing.T) {
	t.Parallel()

	secret := "whsec_123"
	base := Subscription{
		Name:      "orders-consumer",
		TargetURL: "https://example.com/hooks/orders",
		SecretKey: &secret,
	}

	tests := []struct {
		name    string
		mutate  func(*Subscription)
		wantErr bool
	}{
		{
			name:   "valid subscription",
			mutate: func(s *Subscription) {},
		},
		{
			name: "missing name",
			mutate: func(s *Subscription) {
				s.Name = "  "
			},
			wantErr: true,
		},
		{
			name: "missing target url",
			mutate: func(s *Subscription) {
				s.TargetURL = ""
			},
			wantErr: true,
		},
		{
			name: "relative target url",
			mutate: func(s *Subscription) {
				s.TargetURL = "/hooks/orders"
			},
			wantErr: true,
		},
		{
			name: "non-http scheme",
			mutate: func(s *Subscription) {
				s.TargetURL = "ftp://example.com/hooks"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}
