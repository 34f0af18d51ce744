package events

import (
	"sync"
)

// Bus dispatches events synchronously to subscribers. Handlers run on the
// publishing goroutine and must not block. A nil *Bus discards events.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]func(Event))}
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// SubscribeAll registers fn for every event. The returned function removes it.
func (b *Bus) SubscribeAll(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Subscribe registers fn for events of type T only.
func Subscribe[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	return b.SubscribeAll(func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}
