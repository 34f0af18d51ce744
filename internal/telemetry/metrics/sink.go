package metrics

import (
	"github.com/vietddude/streamguard/internal/core/events"
)

// Attach feeds bus events into the collectors.
func Attach(b *events.Bus) (detach func()) {
	return b.SubscribeAll(Record)
}

// Record updates the collectors for one event.
func Record(e events.Event) {
	switch ev := e.(type) {
	case events.ConnectionCreated:
		ConnectionsCreated.WithLabelValues(ev.Type).Inc()
	case events.ConnectionDestroyed:
		ConnectionsDestroyed.WithLabelValues(ev.Type, ev.Reason).Inc()
	case events.BreakerOpened:
		BreakerOpen.Set(1)
	case events.BreakerClosed:
		BreakerOpen.Set(0)
	case events.RetryAttempt:
		RetryAttempts.WithLabelValues(string(ev.Category)).Inc()
	case events.RetrySuccess:
		RetryOutcomes.WithLabelValues("success").Inc()
		RetryDuration.WithLabelValues("success").Observe(ev.Elapsed.Seconds())
	case events.RetryFailed:
		RetryOutcomes.WithLabelValues("failure").Inc()
		RetryDuration.WithLabelValues("failure").Observe(ev.Elapsed.Seconds())
	case events.RefreshRequired:
		CredentialRefreshes.WithLabelValues("reauth_required").Inc()
	case events.RefreshFailed:
		CredentialRefreshes.WithLabelValues("failed").Inc()
	case events.RecoveryAttempt:
		RecoveryAttempts.WithLabelValues(string(ev.Category)).Inc()
	case events.RecoverySuccess:
		RecoveryOutcomes.WithLabelValues(string(ev.Category), "success").Inc()
	case events.RecoveryFailed:
		outcome := "failed"
		if ev.Exhausted {
			outcome = "exhausted"
		}
		RecoveryOutcomes.WithLabelValues(string(ev.Category), outcome).Inc()
	case events.CacheHit:
		CacheRequests.WithLabelValues("hit").Inc()
	case events.CacheMiss:
		result := "miss"
		if ev.Expired {
			result = "expired"
		}
		CacheRequests.WithLabelValues(result).Inc()
	case events.CacheEvicted:
		CacheEvictions.WithLabelValues(ev.Reason).Inc()
	}
}

// SetPoolConnections publishes the current pool occupancy.
func SetPoolConnections(active, idle int) {
	PoolConnections.WithLabelValues("active").Set(float64(active))
	PoolConnections.WithLabelValues("idle").Set(float64(idle))
}

// SetCacheUsage publishes the current cache occupancy.
func SetCacheUsage(items int, bytes int64) {
	CacheItems.Set(float64(items))
	CacheBytes.Set(float64(bytes))
}
