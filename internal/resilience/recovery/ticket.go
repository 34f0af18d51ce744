package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// Ticket is the pending outcome of one recovery decision. It resolves true
// when the recovery delay elapses and false when recovery will not happen.
type Ticket struct {
	ResourceID string
	Category   domain.ErrorCategory
	Attempt    int
	Delay      time.Duration
	// Reset is set when the resource should be rebuilt rather than reused.
	Reset bool

	scheduled bool
	timer     *time.Timer
	done      chan struct{}
	once      sync.Once
	ok        bool
}

func newTicket(resourceID string, cat domain.ErrorCategory) *Ticket {
	return &Ticket{
		ResourceID: resourceID,
		Category:   cat,
		done:       make(chan struct{}),
	}
}

// Scheduled reports whether a recovery attempt was scheduled.
func (t *Ticket) Scheduled() bool { return t.scheduled }

// Ready is closed once the ticket resolves.
func (t *Ticket) Ready() <-chan struct{} { return t.done }

// Wait blocks until the ticket resolves and returns whether to proceed.
// It returns false if ctx ends first.
func (t *Ticket) Wait(ctx context.Context) bool {
	select {
	case <-t.done:
		return t.ok
	case <-ctx.Done():
		return false
	}
}

func (t *Ticket) resolve(ok bool) {
	t.once.Do(func() {
		t.ok = ok
		close(t.done)
	})
}

// stop cancels a scheduled ticket. It reports false if the timer already
// fired.
func (t *Ticket) stop() bool {
	if t.timer != nil && !t.timer.Stop() {
		return false
	}
	t.resolve(false)
	return true
}
