package recovery

import (
	"time"

	"github.com/vietddude/streamguard/internal/core/policy"
)

// Strategy decides whether and when a resource is retried.
type Strategy interface {
	// Delay returns the wait before recovery attempt n (0-indexed).
	Delay(attempt int) time.Duration

	// ShouldRetry reports whether recovery attempt n may be scheduled.
	ShouldRetry(attempt int) bool
}

// PolicyStrategy drives recovery from a category policy.
type PolicyStrategy struct {
	Config policy.Config
}

// Delay implements Strategy.
func (s PolicyStrategy) Delay(attempt int) time.Duration {
	return policy.Next(s.Config, attempt)
}

// ShouldRetry implements Strategy.
func (s PolicyStrategy) ShouldRetry(attempt int) bool {
	return s.Config.Retryable() && attempt < s.Config.MaxRetries
}

// Reset reports whether the resource should be torn down and rebuilt rather
// than reused.
func (s PolicyStrategy) Reset() bool {
	return s.Config.Strategy == policy.StrategyResetResource
}
