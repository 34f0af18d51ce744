package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/streamguard/internal/core/events"
)

// Sender publishes a payload to a channel. *Client implements it.
type Sender interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Envelope is the wire form of a published event.
type Envelope struct {
	Kind  events.Kind  `json:"kind"`
	Time  time.Time    `json:"time"`
	Event events.Event `json:"event"`
	Error string       `json:"error,omitempty"`
}

// Encode renders an event as a JSON envelope.
func Encode(e events.Event, at time.Time) ([]byte, error) {
	env := Envelope{Kind: e.Kind(), Time: at, Event: e}
	if err := errorOf(e); err != nil {
		env.Error = err.Error()
	}
	return json.Marshal(env)
}

func errorOf(e events.Event) error {
	switch ev := e.(type) {
	case events.RetryAttempt:
		return ev.Err
	case events.RetryFailed:
		return ev.Err
	case events.RefreshFailed:
		return ev.Err
	case events.RecoveryFailed:
		return ev.Err
	}
	return nil
}

// Publisher forwards bus events to a Redis channel from a background worker.
// Events are dropped, not blocked on, when the buffer is full.
type Publisher struct {
	sender  Sender
	channel string
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan events.Event
	dropped atomic.Int64
	detach  func()
	done    chan struct{}
}

// AttachPublisher subscribes to every event on b and starts the worker.
func AttachPublisher(b *events.Bus, sender Sender, channel string, buffer int, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		sender:  sender,
		channel: channel,
		logger:  logger,
		queue:   make(chan events.Event, buffer),
		done:    make(chan struct{}),
	}
	p.detach = b.SubscribeAll(p.enqueue)
	go p.run()
	return p
}

func (p *Publisher) enqueue(e events.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
	}
}

func (p *Publisher) run() {
	defer close(p.done)

	for e := range p.queue {
		payload, err := Encode(e, time.Now())
		if err != nil {
			p.logger.Warn("Failed to encode event", "kind", e.Kind(), "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = p.sender.Publish(ctx, p.channel, payload)
		cancel()
		if err != nil {
			p.logger.Warn("Failed to publish event", "kind", e.Kind(), "error", err)
		}
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close unsubscribes and drains queued events.
func (p *Publisher) Close() {
	p.detach()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
}
