// Package retry runs caller-supplied operations under the category policy
// of their failures.
//
// The first failure of a call is classified and resolves the call's policy:
// explicit call options over the category table over the built-in fallback.
// Authentication failures invoke the credential refresh hook once instead of
// retrying blindly.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/core/classify"
	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/core/events"
	"github.com/vietddude/streamguard/internal/core/policy"
)

// Operation is a retryable remote call. It must tolerate being run more
// than once.
type Operation func(ctx context.Context) error

// Engine executes operations with classified retry.
type Engine struct {
	classifier classify.Classifier
	table      *policy.Table
	refresher  CredentialRefresher
	bus        *events.Bus
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	stats   map[string]*Stats
	history map[string][]Attempt
}

// New creates an engine with the default classifier and policy table.
func New(opts ...Option) *Engine {
	e := &Engine{
		classifier: classify.Default(),
		table:      policy.DefaultTable(),
		logger:     slog.Default(),
		sleep:      sleepCtx,
		stats:      make(map[string]*Stats),
		history:    make(map[string][]Attempt),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective policy for a category under the given call
// options.
func (e *Engine) Policy(cat domain.ErrorCategory, opts ...CallOption) policy.Config {
	var o policy.Override
	for _, opt := range opts {
		opt(&o)
	}
	return o.Apply(e.table.Lookup(cat))
}

// Execute runs op until it succeeds, its policy is exhausted, or the failure
// is not retryable. On terminal failure the error returned by op's last
// attempt is returned unchanged; if ctx ends first, ctx.Err() is returned.
// Calls for the same key from one goroutine run strictly sequentially.
func (e *Engine) Execute(ctx context.Context, key string, op Operation, opts ...CallOption) error {
	var callOverride policy.Override
	for _, opt := range opts {
		opt(&callOverride)
	}

	start := time.Now()
	var (
		cfg       policy.Config
		resolved  bool
		refreshed bool
		attempts  int
		retries   int
		timeout   time.Duration
	)
	// The category is unknown until the first failure, so the first attempt
	// gets the loosest bound any policy allows.
	if callOverride.Timeout != nil {
		timeout = *callOverride.Timeout
	} else {
		timeout = e.table.MaxTimeout()
	}

	for {
		attempts++
		e.recordAttempt(key)
		err := e.run(ctx, op, timeout)
		if err == nil {
			e.recordOutcome(key, true)
			elapsed := time.Since(start)
			if attempts > 1 {
				e.logger.Info("Operation succeeded after retry", "key", key, "attempts", attempts, "elapsed", elapsed)
			}
			e.bus.Publish(events.RetrySuccess{Key: key, Attempts: attempts, Elapsed: elapsed})
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.fail(key, attempts, start, domain.CategoryUnknown, ctxErr)
		}

		cat := e.classifier.Classify(err)
		if !resolved {
			cfg = callOverride.Apply(e.table.Lookup(cat))
			resolved = true
			if callOverride.Timeout == nil && cfg.Timeout > 0 {
				timeout = cfg.Timeout
			}
		}

		if cat.IsAuth() && e.refresher != nil {
			if refreshed {
				return e.fail(key, attempts, start, cat, err)
			}
			refreshed = true
			if !e.refresh(ctx, key) {
				return e.fail(key, attempts, start, cat, err)
			}
			// Fresh credentials: retry at once.
			retries++
			e.recordRetry(key, Attempt{Index: retries, Err: err, At: time.Now()})
			e.bus.Publish(events.RetryAttempt{Key: key, Attempt: retries, Category: cat, Err: err})
			continue
		}

		if callOverride.Apply(e.table.Lookup(cat)).Strategy == policy.StrategyNoRetry ||
			!cfg.Retryable() || retries >= cfg.MaxRetries {
			return e.fail(key, attempts, start, cat, err)
		}

		delay := policy.Next(cfg, retries)
		if cat == domain.CategoryRateLimit {
			if after, ok := classify.RetryAfter(err); ok && after > delay {
				delay = after
			}
		}
		retries++
		e.recordRetry(key, Attempt{Index: retries, Delay: delay, Err: err, At: time.Now()})
		e.bus.Publish(events.RetryAttempt{
			Key:      key,
			Attempt:  retries,
			Delay:    delay,
			Category: cat,
			Err:      err,
		})
		e.logger.Debug("Retrying operation",
			"key", key,
			"attempt", retries,
			"delay", delay,
			"category", cat,
			"error", err)

		if err := e.sleep(ctx, delay); err != nil {
			return e.fail(key, attempts, start, cat, err)
		}
	}
}

// Do is Execute for operations that produce a value.
func Do[T any](ctx context.Context, e *Engine, key string, fn func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var result T
	err := e.Execute(ctx, key, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, op Operation, timeout time.Duration) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// refresh invokes the credential hook and reports whether the call may be
// retried.
func (e *Engine) refresh(ctx context.Context, key string) bool {
	res, err := e.refresher.Refresh(ctx)
	if err != nil {
		msg := res.Message
		if msg == "" {
			msg = err.Error()
		}
		e.logger.Warn("Credential refresh failed", "key", key, "error", err)
		e.bus.Publish(events.RefreshFailed{Key: key, Message: msg, Err: err})
		return false
	}
	if !res.Success {
		e.logger.Warn("Credential refresh failed", "key", key, "message", res.Message)
		e.bus.Publish(events.RefreshFailed{Key: key, Message: res.Message})
		return false
	}
	if res.RequiresInteractiveReauth {
		e.logger.Warn("Interactive re-authentication required", "key", key, "message", res.Message)
		e.bus.Publish(events.RefreshRequired{Key: key, Message: res.Message})
		return false
	}
	e.logger.Info("Credentials refreshed", "key", key)
	return true
}

func (e *Engine) fail(key string, attempts int, start time.Time, cat domain.ErrorCategory, err error) error {
	e.recordOutcome(key, false)
	elapsed := time.Since(start)
	e.bus.Publish(events.RetryFailed{
		Key:      key,
		Attempts: attempts,
		Elapsed:  elapsed,
		Category: cat,
		Err:      err,
	})
	if !errors.Is(err, context.Canceled) {
		e.logger.Warn("Operation failed",
			"key", key,
			"attempts", attempts,
			"elapsed", elapsed,
			"category", cat,
			"error", err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
