// Package webhook dispatches fired alerts to rule-configured webhook
// URLs over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/ortegarod/flashwatch/internal/alert"
)

// TokenEnvVar is the environment variable carrying an optional bearer
// token attached to every outbound webhook request.
const TokenEnvVar = "FLASHWATCH_WEBHOOK_TOKEN"

const requestTimeout = 5 * time.Second

// maxDispatchRate bounds outbound webhook requests so a noisy rule
// (or a misbehaving webhook target) can't turn alert delivery into a
// self-inflicted denial of service against the configured URL.
const maxDispatchRate = 10 // requests per second

// Sender posts an alert to a webhook URL. Body templating beyond the
// canonical alert JSON shape is out of scope — Sender always posts
// the full alert.
type Sender interface {
	Send(ctx context.Context, url string, a alert.Alert) error
}

// HTTPSender is the production Sender, a single shared *http.Client
// with a fixed request timeout and a rate limiter guarding outbound
// dispatch.
type HTTPSender struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSender builds an HTTPSender with the standard 5s timeout and
// a 10req/s dispatch ceiling shared across every webhook URL.
func NewHTTPSender() *HTTPSender {
	return &HTTPSender{
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(maxDispatchRate), maxDispatchRate),
	}
}

// Send POSTs a's JSON encoding to url, attaching a bearer token from
// TokenEnvVar when present. Delivery failures and non-2xx responses
// are returned as errors for the caller to log at debug level — a
// webhook failure never interrupts the ingestion pipeline.
func (s *HTTPSender) Send(ctx context.Context, url string, a alert.Alert) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for webhook rate limiter: %w", err)
	}

	body, err := BuildBody(a)
	if err != nil {
		return fmt.Errorf("encoding webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv(TokenEnvVar); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned %s", url, resp.Status)
	}
	return nil
}

// BuildBody returns the canonical JSON payload posted to a webhook for
// a fired alert.
func BuildBody(a alert.Alert) ([]byte, error) {
	return json.Marshal(a)
}
