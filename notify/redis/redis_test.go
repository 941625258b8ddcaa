package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/gunwale-io/bailer/notify"
)

func testEvent() *notify.RunCompletedEvent {
	sig := 3.2
	return &notify.RunCompletedEvent{
		EventType:    "run_completed",
		RunID:        "run-001",
		Seed:         42,
		Operations:   []string{"test"},
		Outcome:      "success",
		Significance: &sig,
		DurationMs:   1500,
		Timestamp:    "2026-08-28T12:00:00Z",
	}
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Publish to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := n.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)

	var received notify.RunCompletedEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.RunID != "run-001" {
		t.Errorf("expected run-001, got %s", received.RunID)
	}
	if received.Significance == nil || *received.Significance != 3.2 {
		t.Errorf("significance = %v", received.Significance)
	}
}

func TestPublish_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr(), Channel: "custom:events", Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe("custom:events")
	ch := asyncReceive(sub)

	if err := n.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != "custom:events" {
		t.Errorf("channel = %q", msg.Channel)
	}
}

func TestPublish_ConnectionFailure(t *testing.T) {
	// Port 1 refuses connections; with zero retries the failure is
	// immediate.
	n, err := New(Config{URL: "redis://127.0.0.1:1", Timeout: time.Second, Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if err := n.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected publish to fail against a dead server")
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(Config{URL: "://bogus"}); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNew_Defaults(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr(), Retries: -1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if n.cfg.Channel != DefaultChannel {
		t.Errorf("channel = %q, want default", n.cfg.Channel)
	}
	if n.cfg.Retries != DefaultRetries {
		t.Errorf("retries = %d, want default", n.cfg.Retries)
	}
}
