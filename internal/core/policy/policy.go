// Package policy holds the recovery policy table shared by the retry engine
// and the recovery orchestrator, together with the backoff math both use.
package policy

import (
	"fmt"
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// Strategy selects how the delay before a retry is computed.
type Strategy string

const (
	StrategyImmediate     Strategy = "immediate"
	StrategyFixed         Strategy = "fixed"
	StrategyLinear        Strategy = "linear"
	StrategyExponential   Strategy = "exponential"
	StrategyResetResource Strategy = "reset-resource"
	StrategyNoRetry       Strategy = "no-retry"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyImmediate, StrategyFixed, StrategyLinear,
		StrategyExponential, StrategyResetResource, StrategyNoRetry:
		return st, nil
	}
	return "", fmt.Errorf("unknown retry strategy %q", s)
}

// Config is the recovery policy for one error category.
type Config struct {
	Strategy   Strategy
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout bounds a single attempt. Zero means no per-attempt bound.
	Timeout time.Duration
	Jitter  bool
}

// Retryable reports whether the policy ever schedules another attempt.
func (c Config) Retryable() bool {
	return c.Strategy != StrategyNoRetry && c.MaxRetries > 0
}

// Fallback is used when neither call options nor the table define a policy.
var Fallback = Config{
	Strategy:   StrategyExponential,
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   30 * time.Second,
	Jitter:     true,
}

// Defaults returns the built-in policy for each category.
// Rate limiting backs off longer and without jitter so a server cool-down is
// not undercut; authentication and client errors are never retried blindly.
func Defaults() map[domain.ErrorCategory]Config {
	return map[domain.ErrorCategory]Config{
		domain.CategoryNetwork: {
			Strategy:   StrategyExponential,
			MaxRetries: 5,
			BaseDelay:  1 * time.Second,
			MaxDelay:   30 * time.Second,
			Timeout:    10 * time.Second,
			Jitter:     true,
		},
		domain.CategoryTimeout: {
			Strategy:   StrategyExponential,
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
			Timeout:    15 * time.Second,
			Jitter:     true,
		},
		domain.CategoryServer: {
			Strategy:   StrategyExponential,
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
			MaxDelay:   60 * time.Second,
			Jitter:     true,
		},
		domain.CategoryRateLimit: {
			Strategy:   StrategyExponential,
			MaxRetries: 3,
			BaseDelay:  5 * time.Second,
			MaxDelay:   2 * time.Minute,
			Jitter:     false,
		},
		domain.CategoryAuthentication: {
			Strategy:   StrategyNoRetry,
			MaxRetries: 0,
		},
		domain.CategoryClient: {
			Strategy:   StrategyNoRetry,
			MaxRetries: 0,
		},
		domain.CategoryUnknown: Fallback,
	}
}
