// Package cache is a bounded in-memory key/value store with TTL expiry, LRU
// eviction, byte-size limits and per-owner accounting.
//
// Values are stored serialized, optionally zstd-compressed, and verified by
// checksum on read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/streamguard/internal/core/events"
)

// Config bounds the cache.
type Config struct {
	MaxSize    int64
	MaxItems   int
	DefaultTTL time.Duration
	// SweepInterval is how often expired items are purged. Zero disables
	// the background sweep; expiry is still enforced on access.
	SweepInterval time.Duration
	// CompressThreshold compresses values at least this many bytes long.
	// Zero disables automatic compression.
	CompressThreshold int
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:           50 << 20,
		MaxItems:          10000,
		DefaultTTL:        5 * time.Minute,
		SweepInterval:     time.Minute,
		CompressThreshold: 1024,
	}
}

// CacheOption configures a Cache.
type CacheOption func(c *Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithEventBus sets the bus cache events are published on.
func WithEventBus(bus *events.Bus) CacheOption {
	return func(c *Cache) {
		c.bus = bus
	}
}

type ownerStats struct {
	items int
	size  int64
}

// Cache is safe for concurrent use.
type Cache struct {
	cfg    Config
	logger *slog.Logger
	bus    *events.Bus
	now    func() time.Time

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu          sync.Mutex
	lru         *simplelru.LRU[string, *item]
	size        int64
	owners      map[string]*ownerStats
	hits        int64
	misses      int64
	evictions   int64
	expirations int64
	closed      bool

	// evictReason labels removals made by the current locked operation;
	// evicted collects their events until the lock is released.
	evictReason string
	evicted     []events.Event

	loads singleflight.Group

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a cache and starts its sweep loop.
func New(cfg Config, opts ...CacheOption) (*Cache, error) {
	def := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	c := &Cache{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		enc:    enc,
		dec:    dec,
		owners: make(map[string]*ownerStats),
	}
	// The LRU is sized one above MaxItems so it never evicts on its own;
	// Set makes room explicitly and labels the eviction.
	c.lru, err = simplelru.NewLRU[string, *item](cfg.MaxItems+1, c.onEvict)
	if err != nil {
		enc.Close()
		dec.Close()
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	if cfg.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(ctx)
	}

	return c, nil
}

// onEvict runs under c.mu for every removal from the LRU and is the only
// place size and owner accounting is decremented.
func (c *Cache) onEvict(key string, it *item) {
	c.size -= it.size
	if st, ok := c.owners[it.owner]; ok {
		st.items--
		st.size -= it.size
		if st.items == 0 {
			delete(c.owners, it.owner)
		}
	}

	switch c.evictReason {
	case "lru", "size":
		c.evictions++
	case "expired":
		c.expirations++
	}
	c.evicted = append(c.evicted, events.CacheEvicted{
		Key:    key,
		Owner:  it.owner,
		Size:   it.size,
		Reason: c.evictReason,
	})
}

// removeLocked removes key with the given reason.
func (c *Cache) removeLocked(key, reason string) bool {
	c.evictReason = reason
	return c.lru.Remove(key)
}

// unlock releases c.mu and publishes events gathered while it was held.
func (c *Cache) unlock(extra ...events.Event) {
	pending := append(c.evicted, extra...)
	c.evicted = nil
	c.mu.Unlock()

	for _, e := range pending {
		c.bus.Publish(e)
	}
}

// Set stores value under key, evicting least recently used items as needed
// to stay within the size and item limits. An existing entry is replaced.
func (c *Cache) Set(key string, value any, opts ...Option) error {
	if key == "" {
		return ErrInvalidKey
	}
	o := buildOptions(opts)
	ttl := c.cfg.DefaultTTL
	if o.ttlSet {
		if o.ttl <= 0 {
			return ErrInvalidTTL
		}
		ttl = o.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	compress := c.cfg.CompressThreshold > 0 && len(data) >= c.cfg.CompressThreshold
	if o.compress != nil {
		compress = *o.compress
	}
	compressed := false
	if compress {
		if z := c.enc.EncodeAll(data, make([]byte, 0, len(data))); len(z) < len(data) {
			data = z
			compressed = true
		}
	}

	size := int64(len(data))
	if size > c.cfg.MaxSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrItemTooLarge, key, size, c.cfg.MaxSize)
	}

	now := c.now()
	it := &item{
		key:          key,
		data:         data,
		size:         size,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
		owner:        o.owner,
		compressed:   compressed,
		checksum:     xxhash.Sum64(data),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.removeLocked(key, "replaced")

	c.evictReason = "size"
	for c.size+size > c.cfg.MaxSize {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	c.evictReason = "lru"
	for c.lru.Len() >= c.cfg.MaxItems {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}

	c.lru.Add(key, it)
	c.size += size
	st, ok := c.owners[it.owner]
	if !ok {
		st = &ownerStats{}
		c.owners[it.owner] = st
	}
	st.items++
	st.size += size

	c.unlock(events.CacheSet{Key: key, Owner: it.owner, Size: size, Compressed: compressed})
	return nil
}

// GetBytes returns the serialized value stored under key. Expired items and
// items belonging to another owner (when WithOwner is given) are absent.
func (c *Cache) GetBytes(key string, opts ...Option) ([]byte, bool, error) {
	o := buildOptions(opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrClosed
	}
	it, ok := c.lru.Peek(key)
	if !ok || (o.owner != "" && it.owner != o.owner) {
		c.misses++
		c.unlock(events.CacheMiss{Key: key, Owner: o.owner})
		return nil, false, nil
	}
	now := c.now()
	if it.expired(now) {
		c.misses++
		c.removeLocked(key, "expired")
		c.unlock(events.CacheMiss{Key: key, Owner: o.owner, Expired: true})
		return nil, false, nil
	}

	c.lru.Get(key)
	it.lastAccessed = now
	it.accessCount++
	c.hits++
	data, compressed, checksum := it.data, it.compressed, it.checksum
	c.unlock(events.CacheHit{Key: key, Owner: it.owner})

	if xxhash.Sum64(data) != checksum {
		c.discard(key, it)
		return nil, false, fmt.Errorf("%w: %s", ErrCorrupted, key)
	}
	if compressed {
		raw, err := c.dec.DecodeAll(data, nil)
		if err != nil {
			c.discard(key, it)
			return nil, false, fmt.Errorf("%w: %s: %w", ErrCorrupted, key, err)
		}
		data = raw
	}
	return data, true, nil
}

// Get decodes the value stored under key into dst. It reports whether the
// key was present.
func (c *Cache) Get(key string, dst any, opts ...Option) (bool, error) {
	data, ok, err := c.GetBytes(key, opts...)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode value for %s: %w", key, err)
	}
	return true, nil
}

// discard drops a corrupted item if it is still the stored one.
func (c *Cache) discard(key string, it *item) {
	c.mu.Lock()
	if cur, ok := c.lru.Peek(key); ok && cur == it {
		c.removeLocked(key, "corrupted")
	}
	c.unlock()
	c.logger.Warn("Dropped corrupted cache item", "key", key)
}

// Has reports whether a live item exists under key without touching its
// recency or the hit counters.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	it, ok := c.lru.Peek(key)
	if ok && it.expired(c.now()) {
		c.removeLocked(key, "expired")
		ok = false
	}
	c.unlock()
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	ok := c.removeLocked(key, "deleted")
	c.unlock()
	return ok
}

// Clear removes every item owned by owner, or every item when owner is
// empty, and returns how many were removed.
func (c *Cache) Clear(owner string) int {
	c.mu.Lock()
	n := 0
	if owner == "" {
		n = c.lru.Len()
		c.evictReason = "cleared"
		c.lru.Purge()
	} else {
		for _, key := range c.lru.Keys() {
			if it, ok := c.lru.Peek(key); ok && it.owner == owner {
				c.removeLocked(key, "cleared")
				n++
			}
		}
	}
	c.unlock()

	if n > 0 {
		c.logger.Debug("Cleared cache", "owner", owner, "count", n)
	}
	return n
}

// Sweep removes all expired items and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	now := c.now()
	n := 0
	for _, key := range c.lru.Keys() {
		if it, ok := c.lru.Peek(key); ok && it.expired(now) {
			c.removeLocked(key, "expired")
			n++
		}
	}
	c.unlock()
	return n
}

func (c *Cache) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Swept expired cache items", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Inspect returns metadata for a live item.
func (c *Cache) Inspect(key string) (ItemInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.lru.Peek(key)
	if !ok || it.expired(c.now()) {
		return ItemInfo{}, false
	}
	return it.info(), true
}

// Len returns the number of stored items, including expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the sweep loop and drops all items.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.evictReason = "shutdown"
	c.lru.Purge()
	c.evicted = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.enc.Close()
	c.dec.Close()
	return nil
}
