// Package events defines the closed set of events emitted by the resilience
// components and a bus to observe them.
package events

import (
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// Kind names an event variant.
type Kind string

const (
	KindConnectionCreated   Kind = "connection_created"
	KindConnectionDestroyed Kind = "connection_destroyed"
	KindBreakerOpened       Kind = "breaker_opened"
	KindBreakerClosed       Kind = "breaker_closed"
	KindRetryAttempt        Kind = "retry_attempt"
	KindRetrySuccess        Kind = "retry_success"
	KindRetryFailed         Kind = "retry_failed"
	KindRefreshRequired     Kind = "refresh_required"
	KindRefreshFailed       Kind = "refresh_failed"
	KindRecoveryAttempt     Kind = "recovery_attempt"
	KindRecoverySuccess     Kind = "recovery_success"
	KindRecoveryFailed      Kind = "recovery_failed"
	KindCacheHit            Kind = "cache_hit"
	KindCacheMiss           Kind = "cache_miss"
	KindCacheSet            Kind = "cache_set"
	KindCacheEvicted        Kind = "cache_evicted"
)

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	sealed()
}

// ConnectionCreated is emitted when the pool allocates a new resource.
type ConnectionCreated struct {
	ConnectionID string
	Type         string
	Key          string
}

// ConnectionDestroyed is emitted when the pool closes a resource.
type ConnectionDestroyed struct {
	ConnectionID string
	Type         string
	Reason       string
}

// BreakerOpened is emitted when consecutive acquisition failures trip the breaker.
type BreakerOpened struct {
	Failures int
	OpenedAt time.Time
}

// BreakerClosed is emitted when a half-open probe succeeds.
type BreakerClosed struct{}

// RetryAttempt is emitted before waiting for the next attempt.
type RetryAttempt struct {
	Key      string
	Attempt  int
	Delay    time.Duration
	Category domain.ErrorCategory
	Err      error
}

// RetrySuccess is emitted when an operation eventually succeeds.
type RetrySuccess struct {
	Key      string
	Attempts int
	Elapsed  time.Duration
}

// RetryFailed is emitted when retrying stops without success.
type RetryFailed struct {
	Key      string
	Attempts int
	Elapsed  time.Duration
	Category domain.ErrorCategory
	Err      error
}

// RefreshRequired is emitted when credentials need interactive re-authentication.
type RefreshRequired struct {
	Key     string
	Message string
}

// RefreshFailed is emitted when the credential refresh hook fails.
type RefreshFailed struct {
	Key     string
	Message string
	Err     error
}

// RecoveryAttempt is emitted when a recovery is scheduled for a resource.
type RecoveryAttempt struct {
	ResourceID string
	Category   domain.ErrorCategory
	Attempt    int
	Delay      time.Duration
	Reset      bool
}

// RecoverySuccess is emitted when a resource is reported recovered.
type RecoverySuccess struct {
	ResourceID string
	Category   domain.ErrorCategory
}

// RecoveryFailed is emitted when recovery is given up for a resource.
type RecoveryFailed struct {
	ResourceID string
	Category   domain.ErrorCategory
	Attempts   int
	Exhausted  bool
	Err        error
}

// CacheHit is emitted on a successful read.
type CacheHit struct {
	Key   string
	Owner string
}

// CacheMiss is emitted when a read finds nothing usable.
type CacheMiss struct {
	Key     string
	Owner   string
	Expired bool
}

// CacheSet is emitted when an item is stored.
type CacheSet struct {
	Key        string
	Owner      string
	Size       int64
	Compressed bool
}

// CacheEvicted is emitted when an item is removed for any reason other than Delete.
type CacheEvicted struct {
	Key    string
	Owner  string
	Size   int64
	Reason string
}

func (ConnectionCreated) Kind() Kind   { return KindConnectionCreated }
func (ConnectionDestroyed) Kind() Kind { return KindConnectionDestroyed }
func (BreakerOpened) Kind() Kind       { return KindBreakerOpened }
func (BreakerClosed) Kind() Kind       { return KindBreakerClosed }
func (RetryAttempt) Kind() Kind        { return KindRetryAttempt }
func (RetrySuccess) Kind() Kind        { return KindRetrySuccess }
func (RetryFailed) Kind() Kind         { return KindRetryFailed }
func (RefreshRequired) Kind() Kind     { return KindRefreshRequired }
func (RefreshFailed) Kind() Kind       { return KindRefreshFailed }
func (RecoveryAttempt) Kind() Kind     { return KindRecoveryAttempt }
func (RecoverySuccess) Kind() Kind     { return KindRecoverySuccess }
func (RecoveryFailed) Kind() Kind      { return KindRecoveryFailed }
func (CacheHit) Kind() Kind            { return KindCacheHit }
func (CacheMiss) Kind() Kind           { return KindCacheMiss }
func (CacheSet) Kind() Kind            { return KindCacheSet }
func (CacheEvicted) Kind() Kind        { return KindCacheEvicted }

func (ConnectionCreated) sealed()   {}
func (ConnectionDestroyed) sealed() {}
func (BreakerOpened) sealed()       {}
func (BreakerClosed) sealed()       {}
func (RetryAttempt) sealed()        {}
func (RetrySuccess) sealed()        {}
func (RetryFailed) sealed()         {}
func (RefreshRequired) sealed()     {}
func (RefreshFailed) sealed()       {}
func (RecoveryAttempt) sealed()     {}
func (RecoverySuccess) sealed()     {}
func (RecoveryFailed) sealed()      {}
func (CacheHit) sealed()            {}
func (CacheMiss) sealed()           {}
func (CacheSet) sealed()            {}
func (CacheEvicted) sealed()        {}
