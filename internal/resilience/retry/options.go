package retry

import (
	"log/slog"
	"time"

	"github.com/vietddude/streamguard/internal/core/classify"
	"github.com/vietddude/streamguard/internal/core/events"
	"github.com/vietddude/streamguard/internal/core/policy"
)

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventBus sets the bus retry events are published on.
func WithEventBus(bus *events.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithClassifier replaces the default error classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithPolicies sets the category policy table.
func WithPolicies(t *policy.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithRefresher registers the credential refresh hook used for
// authentication failures.
func WithRefresher(r CredentialRefresher) Option {
	return func(e *Engine) {
		e.refresher = r
	}
}

// CallOption overrides the category policy for a single call.
type CallOption func(o *policy.Override)

// WithMaxRetries overrides the number of retries after the first attempt.
func WithMaxRetries(n int) CallOption {
	return func(o *policy.Override) {
		o.MaxRetries = &n
	}
}

// WithStrategy overrides the backoff strategy.
func WithStrategy(s policy.Strategy) CallOption {
	return func(o *policy.Override) {
		o.Strategy = &s
	}
}

// WithBaseDelay overrides the base delay.
func WithBaseDelay(d time.Duration) CallOption {
	return func(o *policy.Override) {
		o.BaseDelay = &d
	}
}

// WithMaxDelay overrides the delay cap.
func WithMaxDelay(d time.Duration) CallOption {
	return func(o *policy.Override) {
		o.MaxDelay = &d
	}
}

// WithJitter enables or disables jitter.
func WithJitter(enabled bool) CallOption {
	return func(o *policy.Override) {
		o.Jitter = &enabled
	}
}

// WithTimeout bounds every attempt of the call, including the first.
func WithTimeout(d time.Duration) CallOption {
	return func(o *policy.Override) {
		o.Timeout = &d
	}
}
