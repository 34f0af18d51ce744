package pool

import "time"

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Normal operation; acquisitions pass through.
	BreakerOpen                         // Failing; acquisitions are rejected immediately.
	BreakerHalfOpen                     // Probing; one acquisition tests recovery.
)

// String returns a human-readable state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker counts consecutive acquisition failures. It is guarded by Pool.mu.
type breaker struct {
	threshold    int
	resetTimeout time.Duration

	state    BreakerState
	failures int
	openedAt time.Time
}

func newBreaker(threshold int, resetTimeout time.Duration) *breaker {
	return &breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// allow decides whether an acquisition may proceed. Once the reset timeout
// has elapsed the failure memory is cleared and exactly one acquisition is let
// through as a probe; others are rejected until that probe settles.
func (b *breaker) allow(now time.Time) error {
	switch b.state {
	case BreakerOpen:
		if now.Sub(b.openedAt) < b.resetTimeout {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.failures = 0
		return nil
	case BreakerHalfOpen:
		return ErrBreakerOpen
	}
	return nil
}

// success records a successful acquisition and reports whether it closed
// the breaker.
func (b *breaker) success() bool {
	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
		return true
	}
	return false
}

// failure records a failed acquisition and reports whether it opened the
// breaker.
func (b *breaker) failure(now time.Time) bool {
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = now
		b.failures = 1
		return true
	}

	b.failures++
	if b.state == BreakerClosed && b.threshold > 0 && b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = now
		return true
	}
	return false
}
