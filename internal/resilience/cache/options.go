package cache

import "time"

type options struct {
	ttl      time.Duration
	ttlSet   bool
	owner    string
	compress *bool
}

// Option adjusts a single Set or Get call.
type Option func(o *options)

// WithTTL sets the item lifetime. Non-positive values are rejected by Set.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithOwner tags an item on Set and restricts lookups to that owner on Get.
func WithOwner(owner string) Option {
	return func(o *options) {
		o.owner = owner
	}
}

// WithCompression forces compression on or off for one Set, overriding the
// size threshold.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = &enabled
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
