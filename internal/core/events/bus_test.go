package events

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestBus_TypedSubscribe(t *testing.T) {
	bus := NewBus()

	var hits []CacheHit
	unsub := Subscribe(bus, func(e CacheHit) {
		hits = append(hits, e)
	})

	bus.Publish(CacheHit{Key: "a"})
	bus.Publish(CacheMiss{Key: "b"})
	bus.Publish(CacheHit{Key: "c"})

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Key != "a" || hits[1].Key != "c" {
		t.Errorf("unexpected hits: %+v", hits)
	}

	unsub()
	bus.Publish(CacheHit{Key: "d"})
	if len(hits) != 2 {
		t.Error("handler called after unsubscribe")
	}
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(BreakerClosed{})
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(RetrySuccess{Key: "k"})
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("expected 50 deliveries, got %d", count)
	}
}

func TestAttachLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	bus := NewBus()
	detach := AttachLogger(bus, logger)
	defer detach()

	bus.Publish(RetryFailed{Key: "room.info", Attempts: 4})
	bus.Publish(CacheSet{Key: "gift"})

	out := buf.String()
	if !strings.Contains(out, "retry_failed") || !strings.Contains(out, "cache_set") {
		t.Errorf("missing debug event log: %s", out)
	}
	if strings.Contains(out, "level=WARN") {
		t.Errorf("event sink should only log at debug: %s", out)
	}
}
