package recovery

import "github.com/vietddude/streamguard/internal/core/domain"

// Stats summarizes observed errors.
type Stats struct {
	TotalErrors      int64                                     `json:"total_errors"`
	ErrorsByCategory map[domain.ErrorCategory]int64            `json:"errors_by_category"`
	ErrorsByResource map[string]map[domain.ErrorCategory]int64 `json:"errors_by_resource"`
	Pending          int                                       `json:"pending"`
}

// Stats returns a snapshot of error counts, globally and per resource.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Stats{
		ErrorsByCategory: make(map[domain.ErrorCategory]int64, len(o.byCategory)),
		ErrorsByResource: make(map[string]map[domain.ErrorCategory]int64, len(o.byResource)),
		Pending:          len(o.pending),
	}
	for cat, n := range o.byCategory {
		s.ErrorsByCategory[cat] = n
		s.TotalErrors += n
	}
	for id, counts := range o.byResource {
		m := make(map[domain.ErrorCategory]int64, len(counts))
		for cat, n := range counts {
			m[cat] = n
		}
		s.ErrorsByResource[id] = m
	}
	return s
}

// ResetStats clears error counts.
func (o *Orchestrator) ResetStats() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byCategory = make(map[domain.ErrorCategory]int64)
	o.byResource = make(map[string]map[domain.ErrorCategory]int64)
}
