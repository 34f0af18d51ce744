// Package health provides runtime health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/resilience/pool"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

func worse(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// PoolHealth summarizes the connection pool.
type PoolHealth struct {
	Status              SystemStatus              `json:"status"`
	Breaker             string                    `json:"breaker"`
	Total               int                       `json:"total"`
	Active              int                       `json:"active"`
	Idle                int                       `json:"idle"`
	ConsecutiveFailures int                       `json:"consecutive_failures"`
	ByType              map[string]pool.TypeStats `json:"by_type"`
}

// CacheHealth summarizes the cache.
type CacheHealth struct {
	Status  SystemStatus `json:"status"`
	Items   int          `json:"items"`
	Size    int64        `json:"size"`
	MaxSize int64        `json:"max_size"`
	HitRate float64      `json:"hit_rate"`
}

// RecoveryHealth summarizes the recovery orchestrator.
type RecoveryHealth struct {
	Status           SystemStatus                   `json:"status"`
	Pending          int                            `json:"pending"`
	TotalErrors      int64                          `json:"total_errors"`
	ErrorsByCategory map[domain.ErrorCategory]int64 `json:"errors_by_category"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus    `json:"system_status"`
	CheckedAt    time.Time       `json:"checked_at"`
	Pool         *PoolHealth     `json:"pool,omitempty"`
	Cache        *CacheHealth    `json:"cache,omitempty"`
	Recovery     *RecoveryHealth `json:"recovery,omitempty"`
}
