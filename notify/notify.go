// Package notify publishes run-completed events to downstream systems.
// Notifications are fire-and-forget from the run's point of view: a
// delivery failure is logged, never fatal.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	// EventType is always "run_completed".
	EventType string `json:"event_type"`
	RunID     string `json:"run_id"`
	// Seed is the run's base seed, enough to reproduce the run.
	Seed       int      `json:"seed"`
	Operations []string `json:"operations"`
	// Outcome is "success" or "error".
	Outcome string `json:"outcome"`
	// UpperLimit carries the observed limit when the run produced one.
	UpperLimit *float64 `json:"upper_limit,omitempty"`
	// Significance carries the discovery significance when the run
	// produced one.
	Significance *float64 `json:"significance,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
	// Timestamp is the completion time, RFC 3339.
	Timestamp string `json:"timestamp"`
}

// Notifier publishes run completion events. Implementations are single-use
// per run.
type Notifier interface {
	// Publish sends one event, respecting context cancellation.
	Publish(ctx context.Context, event *RunCompletedEvent) error
	// Close releases notifier resources.
	Close() error
}

// DiscardClose closes c and discards the error. For deferred closes of
// response bodies and finished notifiers, where a close error is
// unactionable:
//
//	defer notify.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// Permanent marks an error as non-retriable. Retry stops on it
// immediately.
type Permanent struct {
	Err error
}

func (e *Permanent) Error() string { return e.Err.Error() }

func (e *Permanent) Unwrap() error { return e.Err }

// backoffBase is the delay before the first retry; each further retry
// doubles it.
const backoffBase = 500 * time.Millisecond

// Retry runs attempt up to attempts times with exponential backoff between
// tries. A *Permanent error, or context cancellation, stops the retries.
func Retry(ctx context.Context, attempts int, attempt func(context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("attempts %d must be >= 1", attempts)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled: %w", err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * backoffBase
			select {
			case <-ctx.Done():
				return fmt.Errorf("canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		var permanent *Permanent
		if errors.As(lastErr, &permanent) {
			return fmt.Errorf("non-retriable: %w", permanent.Err)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
