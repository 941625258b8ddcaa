// Package redis delivers run-completed events over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gunwale-io/bailer/notify"
)

// DefaultChannel is the pub/sub channel events publish to.
const DefaultChannel = "bailer:run_completed"

// DefaultTimeout bounds one PUBLISH.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the retry count after the first attempt.
const DefaultRetries = 3

// Config configures the Redis notifier.
type Config struct {
	// URL is the connection URL, redis://[:password@]host:port[/db].
	// Required.
	URL string
	// Channel is the pub/sub channel. Defaults to DefaultChannel.
	Channel string
	// Timeout bounds one publish. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retries is the retry count after the first attempt. Defaults to
	// DefaultRetries when negative.
	Retries int
}

// Notifier publishes run-completed events to a Redis channel.
type Notifier struct {
	cfg    Config
	client *goredis.Client
}

// New builds a Redis notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}
	return &Notifier{cfg: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish sends the event, retrying transient failures.
func (n *Notifier) Publish(ctx context.Context, event *notify.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode event: %w", err)
	}
	err = notify.Retry(ctx, 1+n.cfg.Retries, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
		return n.client.Publish(publishCtx, n.cfg.Channel, body).Err()
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close releases the client.
func (n *Notifier) Close() error {
	return n.client.Close()
}

var _ notify.Notifier = (*Notifier)(nil)
