package pool

import "time"

// TypeStats counts connections of one resource type.
type TypeStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Idle   int `json:"idle"`
}

// Stats is a snapshot of pool state.
type Stats struct {
	TotalConnections    int                  `json:"total_connections"`
	ActiveConnections   int                  `json:"active_connections"`
	IdleConnections     int                  `json:"idle_connections"`
	ByType              map[string]TypeStats `json:"by_type"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	BreakerState        BreakerState         `json:"-"`
	BreakerStateName    string               `json:"breaker_state"`
	BreakerOpenedAt     time.Time            `json:"breaker_opened_at,omitempty"`
	Created             int64                `json:"created"`
	Reused              int64                `json:"reused"`
	Destroyed           int64                `json:"destroyed"`
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		ByType:              make(map[string]TypeStats, len(p.byType)),
		ConsecutiveFailures: p.breaker.failures,
		BreakerState:        p.breaker.state,
		BreakerStateName:    p.breaker.state.String(),
		Created:             p.created,
		Reused:              p.reused,
		Destroyed:           p.destroyed,
	}
	if p.breaker.state != BreakerClosed {
		s.BreakerOpenedAt = p.breaker.openedAt
	}

	for typ, conns := range p.byType {
		var ts TypeStats
		for _, conn := range conns {
			ts.Total++
			if conn.inUse {
				ts.Active++
			} else {
				ts.Idle++
			}
		}
		s.ByType[typ] = ts
		s.TotalConnections += ts.Total
		s.ActiveConnections += ts.Active
		s.IdleConnections += ts.Idle
	}

	return s
}
