package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/resilience/cache"
	"github.com/vietddude/streamguard/internal/resilience/pool"
	"github.com/vietddude/streamguard/internal/resilience/recovery"
	"github.com/vietddude/streamguard/internal/telemetry/metrics"
)

// PoolSource reports pool statistics.
type PoolSource interface {
	Stats() pool.Stats
}

// CacheSource reports cache statistics.
type CacheSource interface {
	Stats() cache.Stats
}

// RecoverySource reports recovery statistics.
type RecoverySource interface {
	Stats() recovery.Stats
}

// Monitor aggregates health status from the runtime components. Any source
// may be nil.
type Monitor struct {
	pool     PoolSource
	cache    CacheSource
	recovery RecoverySource

	minInterval time.Duration
	lastCheck   time.Time
	lastReport  HealthReport
	mu          sync.Mutex
}

// NewMonitor creates a new health monitor. Reports are reused for
// minInterval between checks.
func NewMonitor(p PoolSource, c CacheSource, r RecoverySource, minInterval time.Duration) *Monitor {
	return &Monitor{
		pool:        p,
		cache:       c,
		recovery:    r,
		minInterval: minInterval,
	}
}

// CheckHealth evaluates every component and refreshes the occupancy gauges.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.minInterval {
		return m.lastReport
	}

	report := HealthReport{SystemStatus: StatusHealthy, CheckedAt: time.Now()}

	if m.pool != nil {
		s := m.pool.Stats()
		ph := &PoolHealth{
			Status:              StatusHealthy,
			Breaker:             s.BreakerStateName,
			Total:               s.TotalConnections,
			Active:              s.ActiveConnections,
			Idle:                s.IdleConnections,
			ConsecutiveFailures: s.ConsecutiveFailures,
			ByType:              s.ByType,
		}
		switch {
		case s.BreakerState == pool.BreakerOpen:
			ph.Status = StatusCritical
		case s.BreakerState == pool.BreakerHalfOpen || s.ConsecutiveFailures > 0:
			ph.Status = StatusDegraded
		}
		metrics.SetPoolConnections(s.ActiveConnections, s.IdleConnections)
		report.Pool = ph
		report.SystemStatus = worse(report.SystemStatus, ph.Status)
	}

	if m.cache != nil {
		s := m.cache.Stats()
		ch := &CacheHealth{
			Status:  StatusHealthy,
			Items:   s.Items,
			Size:    s.Size,
			MaxSize: s.MaxSize,
			HitRate: s.HitRate,
		}
		if s.MaxSize > 0 && float64(s.Size) >= 0.9*float64(s.MaxSize) {
			ch.Status = StatusDegraded
		}
		metrics.SetCacheUsage(s.Items, s.Size)
		report.Cache = ch
		report.SystemStatus = worse(report.SystemStatus, ch.Status)
	}

	if m.recovery != nil {
		s := m.recovery.Stats()
		rh := &RecoveryHealth{
			Status:           StatusHealthy,
			Pending:          s.Pending,
			TotalErrors:      s.TotalErrors,
			ErrorsByCategory: s.ErrorsByCategory,
		}
		if s.Pending > 0 {
			rh.Status = StatusDegraded
		}
		report.Recovery = rh
		report.SystemStatus = worse(report.SystemStatus, rh.Status)
	}

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}

// Start refreshes the report every interval until ctx ends.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckHealth(ctx)
		case <-ctx.Done():
			return
		}
	}
}
