// Package webhook delivers run-completed events as JSON HTTP POSTs.
// 5xx responses and network errors retry with backoff; 4xx responses are
// permanent failures.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gunwale-io/bailer/notify"
)

// DefaultTimeout bounds one POST.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the retry count after the first attempt.
const DefaultRetries = 3

// Config configures the webhook notifier.
type Config struct {
	// URL is the endpoint to POST to. Required.
	URL string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout bounds one request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retries is the retry count after the first attempt. Defaults to
	// DefaultRetries when negative.
	Retries int
}

// Notifier posts run-completed events to an HTTP endpoint.
type Notifier struct {
	cfg    Config
	client *http.Client
}

// New builds a webhook notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook notifier requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish posts the event, retrying transient failures.
func (n *Notifier) Publish(ctx context.Context, event *notify.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: encode event: %w", err)
	}
	err = notify.Retry(ctx, 1+n.cfg.Retries, func(ctx context.Context) error {
		return n.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return &notify.Permanent{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer notify.DiscardClose(resp.Body)

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &notify.Permanent{Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}

// Close releases the notifier's connections.
func (n *Notifier) Close() error {
	n.client.CloseIdleConnections()
	return nil
}

var _ notify.Notifier = (*Notifier)(nil)
