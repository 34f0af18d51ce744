package cache

// OwnerStats is the share of the cache held by one owner.
type OwnerStats struct {
	Items int   `json:"items"`
	Size  int64 `json:"size"`
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Items       int                   `json:"items"`
	Size        int64                 `json:"size"`
	MaxItems    int                   `json:"max_items"`
	MaxSize     int64                 `json:"max_size"`
	Hits        int64                 `json:"hits"`
	Misses      int64                 `json:"misses"`
	HitRate     float64               `json:"hit_rate"`
	Evictions   int64                 `json:"evictions"`
	Expirations int64                 `json:"expirations"`
	ByOwner     map[string]OwnerStats `json:"by_owner"`
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Items:       c.lru.Len(),
		Size:        c.size,
		MaxItems:    c.cfg.MaxItems,
		MaxSize:     c.cfg.MaxSize,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		ByOwner:     make(map[string]OwnerStats, len(c.owners)),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	for owner, st := range c.owners {
		s.ByOwner[owner] = OwnerStats{Items: st.items, Size: st.size}
	}
	return s
}

// ResetStats zeroes hit, miss, eviction and expiration counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
}
