package policy

import (
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// Override replaces selected fields of a category policy. Nil fields keep the
// value of the layer below.
type Override struct {
	Strategy   *Strategy
	MaxRetries *int
	BaseDelay  *time.Duration
	MaxDelay   *time.Duration
	Timeout    *time.Duration
	Jitter     *bool
}

// Apply returns c with the override's fields layered on top.
func (o Override) Apply(c Config) Config {
	if o.Strategy != nil {
		c.Strategy = *o.Strategy
	}
	if o.MaxRetries != nil {
		c.MaxRetries = *o.MaxRetries
	}
	if o.BaseDelay != nil {
		c.BaseDelay = *o.BaseDelay
	}
	if o.MaxDelay != nil {
		c.MaxDelay = *o.MaxDelay
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Jitter != nil {
		c.Jitter = *o.Jitter
	}
	return c
}

// Table maps every category to exactly one active policy. It is immutable
// once built and safe for concurrent reads.
type Table struct {
	policies map[domain.ErrorCategory]Config
}

// NewTable builds a table from the defaults with the given overrides applied.
func NewTable(overrides map[domain.ErrorCategory]Override) *Table {
	policies := Defaults()
	for cat, o := range overrides {
		base, ok := policies[cat]
		if !ok {
			base = Fallback
		}
		policies[cat] = o.Apply(base)
	}
	return &Table{policies: policies}
}

// DefaultTable returns a table holding only the built-in defaults.
func DefaultTable() *Table {
	return NewTable(nil)
}

// With returns a new table with further overrides layered on top of t.
func (t *Table) With(overrides map[domain.ErrorCategory]Override) *Table {
	policies := make(map[domain.ErrorCategory]Config, len(t.policies))
	for cat, c := range t.policies {
		policies[cat] = c
	}
	for cat, o := range overrides {
		base, ok := policies[cat]
		if !ok {
			base = Fallback
		}
		policies[cat] = o.Apply(base)
	}
	return &Table{policies: policies}
}

// Lookup returns the policy for a category, falling back to Fallback.
func (t *Table) Lookup(cat domain.ErrorCategory) Config {
	if t == nil {
		return Fallback
	}
	if c, ok := t.policies[cat]; ok {
		return c
	}
	return Fallback
}

// Snapshot returns a copy of all policies.
func (t *Table) Snapshot() map[domain.ErrorCategory]Config {
	out := make(map[domain.ErrorCategory]Config, len(t.policies))
	for cat, c := range t.policies {
		out[cat] = c
	}
	return out
}

// MaxTimeout returns the largest per-attempt timeout in the table, or zero
// if no policy bounds its attempts.
func (t *Table) MaxTimeout() time.Duration {
	if t == nil {
		return Fallback.Timeout
	}
	var max time.Duration
	for _, c := range t.policies {
		if c.Timeout > max {
			max = c.Timeout
		}
	}
	return max
}
