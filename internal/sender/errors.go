package sender

import (
	"errors"
	"fmt"
	"strings"
)

// SendError describes a failed delivery attempt. StatusCode is zero when the
// failure happened at the transport level and no HTTP response was received.
type SendError struct {
	StatusCode int
	Body       string
	Message    string
	Cause      error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "delivery failed")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsSendError unwraps err into a *SendError when possible.
func AsSendError(err error) (*SendError, bool) {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr, true
	}
	return nil, false
}
