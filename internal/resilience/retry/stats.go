package retry

import "time"

// Stats are running counters for one retry key.
type Stats struct {
	TotalAttempts int64 `json:"total_attempts"`
	TotalRetries  int64 `json:"total_retries"`
	Successes     int64 `json:"successes"`
	Failures      int64 `json:"failures"`
}

// Attempt records one failed attempt of an in-flight call.
type Attempt struct {
	Index int
	Delay time.Duration
	Err   error
	At    time.Time
}

// Stats returns the counters for key.
func (e *Engine) Stats(key string) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stats[key]; ok {
		return *s
	}
	return Stats{}
}

// AllStats returns the counters of every key seen.
func (e *Engine) AllStats() map[string]Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Stats, len(e.stats))
	for k, s := range e.stats {
		out[k] = *s
	}
	return out
}

// ClearStats drops the counters for key, or for every key when key is empty.
func (e *Engine) ClearStats(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key == "" {
		e.stats = make(map[string]*Stats)
		return
	}
	delete(e.stats, key)
}

// History returns the attempts recorded for a call still in flight.
func (e *Engine) History(key string) []Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.history[key]
	out := make([]Attempt, len(h))
	copy(out, h)
	return out
}

func (e *Engine) statsLocked(key string) *Stats {
	s, ok := e.stats[key]
	if !ok {
		s = &Stats{}
		e.stats[key] = s
	}
	return s
}

func (e *Engine) recordAttempt(key string) {
	e.mu.Lock()
	e.statsLocked(key).TotalAttempts++
	e.mu.Unlock()
}

func (e *Engine) recordRetry(key string, a Attempt) {
	e.mu.Lock()
	e.statsLocked(key).TotalRetries++
	e.history[key] = append(e.history[key], a)
	e.mu.Unlock()
}

func (e *Engine) recordOutcome(key string, success bool) {
	e.mu.Lock()
	s := e.statsLocked(key)
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
	delete(e.history, key)
	e.mu.Unlock()
}
