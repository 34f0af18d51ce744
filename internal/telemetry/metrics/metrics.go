package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsCreated tracks pooled connections opened per resource type
	ConnectionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_connections_created_total",
			Help: "Total number of pooled connections created",
		},
		[]string{"type"},
	)

	// ConnectionsDestroyed tracks pooled connections closed per type and reason
	ConnectionsDestroyed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_connections_destroyed_total",
			Help: "Total number of pooled connections destroyed",
		},
		[]string{"type", "reason"},
	)

	// PoolConnections tracks live pooled connections by state
	PoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamguard_pool_connections",
			Help: "Current pooled connections by state",
		},
		[]string{"state"},
	)

	// BreakerOpen is 1 while the pool circuit breaker is open
	BreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamguard_breaker_open",
			Help: "Whether the connection pool circuit breaker is open",
		},
	)

	// RetryAttempts tracks scheduled retries per error category
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_retry_attempts_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"category"},
	)

	// RetryOutcomes tracks terminal retry outcomes
	RetryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_retry_outcomes_total",
			Help: "Total number of retried operations by outcome",
		},
		[]string{"outcome"},
	)

	// RetryDuration tracks time from first attempt to terminal outcome
	RetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamguard_retry_duration_seconds",
			Help:    "Elapsed time of retried operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// CredentialRefreshes tracks refresh hook outcomes that stop retrying
	CredentialRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_credential_refresh_total",
			Help: "Total number of credential refreshes that stopped a retry",
		},
		[]string{"result"},
	)

	// RecoveryAttempts tracks scheduled recoveries per category
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_recovery_attempts_total",
			Help: "Total number of resource recoveries scheduled",
		},
		[]string{"category"},
	)

	// RecoveryOutcomes tracks recovery results per category
	RecoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_recovery_outcomes_total",
			Help: "Total number of resource recoveries by outcome",
		},
		[]string{"category", "outcome"},
	)

	// CacheRequests tracks cache lookups by result
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictions tracks cache removals by reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamguard_cache_evictions_total",
			Help: "Total number of cache items removed",
		},
		[]string{"reason"},
	)

	// CacheBytes tracks the serialized size of cached items
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamguard_cache_bytes",
			Help: "Current total size of cached items in bytes",
		},
	)

	// CacheItems tracks the number of cached items
	CacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamguard_cache_items",
			Help: "Current number of cached items",
		},
	)
)
