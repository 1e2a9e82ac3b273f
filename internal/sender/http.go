package sender

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/webhook-relay/internal/cache"
)

const (
	defaultSendTimeout = 10 * time.Second

	// SignatureHeader carries an HMAC-SHA256 of the payload keyed by the
	// subscription secret; verification is the subscriber's concern.
	SignatureHeader = "X-Relay-Signature-256"

	// maxBodySnippet bounds the response body stored on attempt records.
	maxBodySnippet = 2048
)

var _ Sender = (*HTTPSender)(nil)

// HTTPSender delivers payloads over HTTP POST with a fixed per-attempt
// timeout. Client-level retries stay disabled; retrying is the pipeline's
// job, not the transport's.
type HTTPSender struct {
	client *resty.Client
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &HTTPSender{client: client}
}

func NewHTTPSenderWithClient(client *resty.Client) (*HTTPSender, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPSender{client: client}, nil
}

func (s *HTTPSender) Send(ctx context.Context, routing cache.RoutingData, payload []byte) (*Result, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}

	target := strings.TrimSpace(routing.TargetURL)
	if target == "" {
		return nil, fmt.Errorf("target url is required")
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}

	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)

	if secret := strings.TrimSpace(routing.SecretKey); secret != "" {
		req.SetHeader(SignatureHeader, signPayload(secret, payload))
	}

	response, err := req.Post(target)
	if err != nil {
		return nil, &SendError{
			Message: "delivery request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &SendError{Message: "endpoint returned empty response"}
	}

	statusCode := response.StatusCode()
	body := truncateBody(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Result{
			StatusCode: statusCode,
			Body:       body,
		}, nil
	}

	return nil, &SendError{
		StatusCode: statusCode,
		Body:       body,
		Message:    fmt.Sprintf("endpoint returned status %d", statusCode),
	}
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func truncateBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) <= maxBodySnippet {
		return trimmed
	}
	return trimmed[:maxBodySnippet]
}
