// Package recovery schedules reconnection of resources that fail outside a
// caller-initiated operation, such as a socket reporting a lost connection.
//
// Attempts are counted per (resource, category). Each decision is returned as
// a Ticket that resolves after the policy delay, so event handlers never
// block on the wait.
package recovery

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/core/classify"
	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/core/events"
	"github.com/vietddude/streamguard/internal/core/policy"
)

var ErrClosed = errors.New("recovery orchestrator is closed")

type recoveryKey struct {
	resourceID string
	category   domain.ErrorCategory
}

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithEventBus sets the bus recovery events are published on.
func WithEventBus(bus *events.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithClassifier replaces the default error classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithPolicies sets the category policy table.
func WithPolicies(t *policy.Table) Option {
	return func(o *Orchestrator) {
		o.table = t
	}
}

// Orchestrator tracks recovery attempts per resource and category.
type Orchestrator struct {
	classifier classify.Classifier
	table      *policy.Table
	bus        *events.Bus
	logger     *slog.Logger

	mu         sync.Mutex
	attempts   map[recoveryKey]int
	pending    map[recoveryKey]*Ticket
	lastErr    map[recoveryKey]error
	byCategory map[domain.ErrorCategory]int64
	byResource map[string]map[domain.ErrorCategory]int64
	closed     bool
}

// New creates an orchestrator with the default classifier and policy table.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classify.Default(),
		table:      policy.DefaultTable(),
		logger:     slog.Default(),
		attempts:   make(map[recoveryKey]int),
		pending:    make(map[recoveryKey]*Ticket),
		lastErr:    make(map[recoveryKey]error),
		byCategory: make(map[domain.ErrorCategory]int64),
		byResource: make(map[string]map[domain.ErrorCategory]int64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleConnectionError classifies err and schedules a recovery attempt for
// the resource. While an attempt for the same (resource, category) is
// pending, the pending ticket is returned. The ticket resolves false at once
// when the category is not retryable or its attempts are exhausted.
func (o *Orchestrator) HandleConnectionError(resourceID string, err error, errCtx map[string]any) (*Ticket, error) {
	cat := o.classifier.Classify(err)
	connErr := domain.NewConnectionError(resourceID, cat, err, errCtx)
	key := recoveryKey{resourceID: resourceID, category: cat}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}

	o.byCategory[cat]++
	if o.byResource[resourceID] == nil {
		o.byResource[resourceID] = make(map[domain.ErrorCategory]int64)
	}
	o.byResource[resourceID][cat]++
	o.lastErr[key] = connErr

	if t, ok := o.pending[key]; ok {
		o.mu.Unlock()
		return t, nil
	}

	strategy := PolicyStrategy{Config: o.table.Lookup(cat)}
	attempt := o.attempts[key]
	t := newTicket(resourceID, cat)

	if !strategy.ShouldRetry(attempt) {
		exhausted := strategy.Config.Retryable()
		o.mu.Unlock()

		t.resolve(false)
		o.bus.Publish(events.RecoveryFailed{
			ResourceID: resourceID,
			Category:   cat,
			Attempts:   attempt,
			Exhausted:  exhausted,
			Err:        connErr,
		})
		o.logger.Warn("Recovery not scheduled",
			"resource_id", resourceID,
			"category", cat,
			"attempts", attempt,
			"exhausted", exhausted,
			"error", err)
		return t, nil
	}

	delay := strategy.Delay(attempt)
	if cat == domain.CategoryRateLimit {
		if after, ok := classify.RetryAfter(err); ok && after > delay {
			delay = after
		}
	}
	o.attempts[key] = attempt + 1
	t.Attempt = attempt + 1
	t.Delay = delay
	t.Reset = strategy.Reset()
	t.scheduled = true
	o.pending[key] = t
	t.timer = time.AfterFunc(delay, func() { o.fire(key, t) })
	o.mu.Unlock()

	o.bus.Publish(events.RecoveryAttempt{
		ResourceID: resourceID,
		Category:   cat,
		Attempt:    t.Attempt,
		Delay:      delay,
		Reset:      t.Reset,
	})
	o.logger.Info("Recovery scheduled",
		"resource_id", resourceID,
		"category", cat,
		"attempt", t.Attempt,
		"delay", delay)
	return t, nil
}

func (o *Orchestrator) fire(key recoveryKey, t *Ticket) {
	o.mu.Lock()
	if o.pending[key] == t {
		delete(o.pending, key)
	}
	o.mu.Unlock()
	t.resolve(true)
}

// MarkRecoverySuccess clears the attempt counter of a resource for the
// category, or for every category when cat is empty.
func (o *Orchestrator) MarkRecoverySuccess(resourceID string, cat domain.ErrorCategory) {
	for _, key := range o.reset(resourceID, cat) {
		o.bus.Publish(events.RecoverySuccess{ResourceID: key.resourceID, Category: key.category})
	}
	o.logger.Info("Resource recovered", "resource_id", resourceID, "category", cat)
}

// MarkRecoveryFailed gives up on a resource for the category, or for every
// category when cat is empty. Pending tickets resolve false and counters are
// cleared so a later error starts a fresh recovery cycle.
func (o *Orchestrator) MarkRecoveryFailed(resourceID string, cat domain.ErrorCategory, err error) {
	o.mu.Lock()
	counts := make(map[recoveryKey]int)
	for key, n := range o.attempts {
		if key.resourceID == resourceID && (cat == "" || key.category == cat) {
			counts[key] = n
		}
	}
	o.mu.Unlock()

	keys := o.reset(resourceID, cat)
	for _, key := range keys {
		o.bus.Publish(events.RecoveryFailed{
			ResourceID: key.resourceID,
			Category:   key.category,
			Attempts:   counts[key],
			Err:        err,
		})
	}
	o.logger.Warn("Recovery failed", "resource_id", resourceID, "category", cat, "error", err)
}

// reset removes counters and pending tickets matching resourceID and cat and
// returns the keys it touched.
func (o *Orchestrator) reset(resourceID string, cat domain.ErrorCategory) []recoveryKey {
	o.mu.Lock()
	touched := make(map[recoveryKey]struct{})
	var stopped []*Ticket
	match := func(k recoveryKey) bool {
		return k.resourceID == resourceID && (cat == "" || k.category == cat)
	}
	for key := range o.attempts {
		if match(key) {
			delete(o.attempts, key)
			delete(o.lastErr, key)
			touched[key] = struct{}{}
		}
	}
	for key, t := range o.pending {
		if match(key) {
			delete(o.pending, key)
			stopped = append(stopped, t)
			touched[key] = struct{}{}
		}
	}
	o.mu.Unlock()

	for _, t := range stopped {
		t.stop()
	}
	if cat != "" && len(touched) == 0 {
		touched[recoveryKey{resourceID: resourceID, category: cat}] = struct{}{}
	}
	keys := make([]recoveryKey, 0, len(touched))
	for key := range touched {
		keys = append(keys, key)
	}
	return keys
}

// Cancel stops every pending recovery for a resource without touching its
// attempt counters. It returns how many tickets were cancelled.
func (o *Orchestrator) Cancel(resourceID string) int {
	o.mu.Lock()
	var stopped []*Ticket
	for key, t := range o.pending {
		if key.resourceID == resourceID {
			delete(o.pending, key)
			stopped = append(stopped, t)
		}
	}
	o.mu.Unlock()

	n := 0
	for _, t := range stopped {
		if t.stop() {
			n++
		}
	}
	return n
}

// Attempts returns the current attempt count for a resource and category.
func (o *Orchestrator) Attempts(resourceID string, cat domain.ErrorCategory) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[recoveryKey{resourceID: resourceID, category: cat}]
}

// LastError returns the most recent classified error for a resource and
// category.
func (o *Orchestrator) LastError(resourceID string, cat domain.ErrorCategory) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr[recoveryKey{resourceID: resourceID, category: cat}]
}

// Close stops all pending timers. Outstanding tickets resolve false.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	pending := o.pending
	o.pending = make(map[recoveryKey]*Ticket)
	o.mu.Unlock()

	for _, t := range pending {
		t.stop()
	}
	o.logger.Info("Recovery orchestrator closed", "cancelled", len(pending))
	return nil
}
