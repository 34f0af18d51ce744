package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/streamguard/internal/core/events"
)

type fakeSender struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (s *fakeSender) Publish(ctx context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channel)
	s.payloads = append(s.payloads, payload)
	return nil
}

func TestEncode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	payload, err := Encode(events.RetryFailed{
		Key:      "fetch-room",
		Attempts: 4,
		Category: "network",
		Err:      errors.New("connection refused"),
	}, at)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}
	if got["kind"] != "retry_failed" {
		t.Errorf("unexpected kind %v", got["kind"])
	}
	if got["error"] != "connection refused" {
		t.Errorf("unexpected error %v", got["error"])
	}
	ev, ok := got["event"].(map[string]any)
	if !ok || ev["Key"] != "fetch-room" || ev["Attempts"] != float64(4) {
		t.Errorf("unexpected event body %v", got["event"])
	}
}

func TestPublisher_ForwardsEvents(t *testing.T) {
	bus := events.NewBus()
	sender := &fakeSender{}
	p := AttachPublisher(bus, sender, "", 16, nil)

	bus.Publish(events.CacheHit{Key: "a"})
	bus.Publish(events.BreakerClosed{})
	p.Close()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.payloads) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(sender.payloads))
	}
	if sender.channels[0] != DefaultChannel {
		t.Errorf("unexpected channel %s", sender.channels[0])
	}

	bus.Publish(events.CacheHit{Key: "b"})
	if len(sender.payloads) != 2 {
		t.Error("event published after close")
	}
	p.Close()
}

type blockingSender struct {
	release chan struct{}
}

func (s *blockingSender) Publish(ctx context.Context, channel string, payload []byte) error {
	<-s.release
	return nil
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	bus := events.NewBus()
	sender := &blockingSender{release: make(chan struct{})}
	p := AttachPublisher(bus, sender, "ch", 1, nil)

	for i := 0; i < 10; i++ {
		bus.Publish(events.CacheHit{Key: "k"})
	}
	if p.Dropped() == 0 {
		t.Error("expected dropped events with a full buffer")
	}
	close(sender.release)
	p.Close()
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Error("expected parse error")
	}
}
