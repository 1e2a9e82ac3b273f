package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Subscription registers a webhook endpoint that receives ingested events.
// Deleting a subscription cascades to its deliveries and their attempts.
type Subscription struct {
	ID        string
	Name      string
	TargetURL string
	SecretKey *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Subscription) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: subscription is required", ErrValidation)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	target := strings.TrimSpace(s.TargetURL)
	if target == "" {
		return fmt.Errorf("%w: target url is required", ErrValidation)
	}
	parsed, err := url.ParseRequestURI(target)
	if err != nil {
		return fmt.Errorf("%w: invalid target url %q", ErrValidation, s.TargetURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: target url must be http or https, got %q", ErrValidation, parsed.Scheme)
	}

	return nil
}
