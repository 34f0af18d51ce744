// Package pool manages typed, reusable connections to remote resources.
//
// This package contains:
//   - Pool: acquisition, reuse, release and destruction of connections
//   - breaker: consecutive-failure circuit breaker guarding acquisition
//   - health checking and idle reaping loops
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/streamguard/internal/core/events"
)

// Config defines pool limits and maintenance behavior.
type Config struct {
	MaxConnections int
	// MaxPerType overrides DefaultMaxPerType for specific resource types.
	MaxPerType        map[string]int
	DefaultMaxPerType int

	IdleTimeout time.Duration
	// MaxAge is the maximum lifetime of a connection. Zero disables it.
	MaxAge time.Duration

	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	ReapInterval        time.Duration
	// MaxHealthRetries is how many consecutive failed probes a connection
	// survives (being recreated each time) before it is destroyed.
	MaxHealthRetries int
	ProbeConcurrency int

	BreakerThreshold    int
	BreakerResetTimeout time.Duration

	CreateTimeout time.Duration
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections:      50,
		DefaultMaxPerType:   10,
		IdleTimeout:         5 * time.Minute,
		MaxAge:              30 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
		HealthCheckTimeout:  5 * time.Second,
		ReapInterval:        60 * time.Second,
		MaxHealthRetries:    3,
		ProbeConcurrency:    4,
		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
		CreateTimeout:       10 * time.Second,
	}
}

// Option configures a Pool.
type Option func(p *Pool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithEventBus sets the bus lifecycle events are published on.
func WithEventBus(bus *events.Bus) Option {
	return func(p *Pool) {
		p.bus = bus
	}
}

type typeEntry struct {
	factory Factory
	prober  Prober
}

// Pool owns connections of several resource types.
type Pool struct {
	cfg    Config
	logger *slog.Logger
	bus    *events.Bus
	now    func() time.Time

	mu      sync.Mutex
	types   map[string]typeEntry
	conns   map[string]*Connection
	byType  map[string]map[string]*Connection
	pending map[string]int
	breaker *breaker
	closed  bool

	created   int64
	reused    int64
	destroyed int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pool and starts its health check and reaping loops.
func New(cfg Config, opts ...Option) *Pool {
	def := DefaultConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.DefaultMaxPerType <= 0 {
		cfg.DefaultMaxPerType = cfg.MaxConnections
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = def.HealthCheckTimeout
	}
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = def.ProbeConcurrency
	}
	if cfg.BreakerResetTimeout <= 0 {
		cfg.BreakerResetTimeout = def.BreakerResetTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		types:   make(map[string]typeEntry),
		conns:   make(map[string]*Connection),
		byType:  make(map[string]map[string]*Connection),
		pending: make(map[string]int),
		breaker: newBreaker(cfg.BreakerThreshold, cfg.BreakerResetTimeout),
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.loop(ctx, cfg.HealthCheckInterval, p.CheckHealth)
	}
	if cfg.ReapInterval > 0 {
		p.wg.Add(1)
		go p.loop(ctx, cfg.ReapInterval, func(context.Context) { p.Reap() })
	}

	return p
}

// RegisterType registers the factory and optional prober for a resource type.
func (p *Pool) RegisterType(resourceType string, factory Factory, prober Prober) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types[resourceType] = typeEntry{factory: factory, prober: prober}
	if p.byType[resourceType] == nil {
		p.byType[resourceType] = make(map[string]*Connection)
	}
}

// Acquire returns an idle healthy connection of the given type, creating one
// if none can be reused. Failures are never retried here.
func (p *Pool) Acquire(ctx context.Context, resourceType string, opts AcquireOptions) (*Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	entry, ok := p.types[resourceType]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, resourceType)
	}

	now := p.now()
	if err := p.breaker.allow(now); err != nil {
		p.mu.Unlock()
		return nil, err
	}

	var pending []events.Event

	if conn := p.findReusableLocked(resourceType, opts.Key, now); conn != nil {
		conn.inUse = true
		conn.lastUsed = now
		p.reused++
		if p.breaker.success() {
			pending = append(pending, events.BreakerClosed{})
		}
		p.mu.Unlock()

		p.publish(pending)
		p.logger.Debug("Reusing connection", "id", conn.id, "type", resourceType)
		return conn, nil
	}

	if err := p.checkCapacityLocked(resourceType); err != nil {
		pending = p.recordFailureLocked(now, pending)
		p.mu.Unlock()

		p.publish(pending)
		return nil, err
	}

	// Reserve a slot so concurrent creators cannot exceed the limits while
	// the factory runs without the lock.
	p.pending[resourceType]++
	p.mu.Unlock()

	createCtx := ctx
	if p.cfg.CreateTimeout > 0 {
		var cancel context.CancelFunc
		createCtx, cancel = context.WithTimeout(ctx, p.cfg.CreateTimeout)
		defer cancel()
	}
	res, err := entry.factory.Create(createCtx, resourceType, opts)

	p.mu.Lock()
	p.pending[resourceType]--

	if err == nil && res == nil {
		err = errors.New("factory returned nil resource")
	}
	if err != nil {
		pending = p.recordFailureLocked(p.now(), pending)
		p.mu.Unlock()

		p.publish(pending)
		p.logger.Warn("Failed to create connection", "type", resourceType, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateFailed, resourceType, err)
	}

	if p.closed {
		p.mu.Unlock()
		_ = res.Close()
		return nil, ErrPoolClosed
	}

	created := p.now()
	conn := &Connection{
		id:        uuid.New().String(),
		typ:       resourceType,
		key:       opts.Key,
		metadata:  opts.Metadata,
		createdAt: created,
		resource:  res,
		lastUsed:  created,
		inUse:     true,
		healthy:   true,
	}
	p.conns[conn.id] = conn
	p.byType[resourceType][conn.id] = conn
	p.created++

	pending = append(pending, events.ConnectionCreated{
		ConnectionID: conn.id,
		Type:         resourceType,
		Key:          opts.Key,
	})
	if p.breaker.success() {
		pending = append(pending, events.BreakerClosed{})
	}
	p.mu.Unlock()

	p.publish(pending)
	p.logger.Debug("Created connection", "id", conn.id, "type", resourceType, "key", opts.Key)
	return conn, nil
}

// Release returns a connection to the idle set. It does not close the
// underlying resource.
func (p *Pool) Release(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[id]
	if !ok || !conn.inUse {
		return false
	}
	conn.inUse = false
	conn.lastUsed = p.now()
	return true
}

// Destroy removes a connection and closes its resource.
func (p *Pool) Destroy(id string) bool {
	p.mu.Lock()
	conn, ok := p.conns[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.removeLocked(conn)
	p.mu.Unlock()

	_ = p.closeConn(conn, "destroyed")
	return true
}

// MarkUnhealthy flags a connection so it is not reused until a health check
// recreates it.
func (p *Pool) MarkUnhealthy(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[id]
	if !ok {
		return false
	}
	conn.healthy = false
	return true
}

// Inspect returns a snapshot of one connection.
func (p *Pool) Inspect(id string) (ConnectionInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[id]
	if !ok {
		return ConnectionInfo{}, false
	}
	return conn.info(), true
}

// Close stops background loops and closes every connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*Connection, 0, len(p.conns))
	for _, conn := range p.conns {
		conns = append(conns, conn)
	}
	for _, conn := range conns {
		p.removeLocked(conn)
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	var errs []error
	for _, conn := range conns {
		if err := p.closeConn(conn, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}

	p.logger.Info("Connection pool closed", "connections", len(conns))
	return errors.Join(errs...)
}

func (p *Pool) findReusableLocked(resourceType, key string, now time.Time) *Connection {
	var best *Connection
	for _, conn := range p.byType[resourceType] {
		if conn.inUse || conn.probing || !conn.healthy || conn.key != key {
			continue
		}
		if now.Sub(conn.lastUsed) > p.cfg.IdleTimeout {
			continue
		}
		if p.cfg.MaxAge > 0 && now.Sub(conn.createdAt) > p.cfg.MaxAge {
			continue
		}
		if best == nil || conn.lastUsed.After(best.lastUsed) {
			best = conn
		}
	}
	return best
}

func (p *Pool) checkCapacityLocked(resourceType string) error {
	total := len(p.conns)
	for _, n := range p.pending {
		total += n
	}
	if total >= p.cfg.MaxConnections {
		return fmt.Errorf("%w: %d/%d", ErrCapacityExceeded, total, p.cfg.MaxConnections)
	}

	limit := p.cfg.DefaultMaxPerType
	if l, ok := p.cfg.MaxPerType[resourceType]; ok && l > 0 {
		limit = l
	}
	typed := len(p.byType[resourceType]) + p.pending[resourceType]
	if typed >= limit {
		return fmt.Errorf("%w: %s %d/%d", ErrTypeCapacityExceeded, resourceType, typed, limit)
	}
	return nil
}

func (p *Pool) recordFailureLocked(now time.Time, pending []events.Event) []events.Event {
	if p.breaker.failure(now) {
		pending = append(pending, events.BreakerOpened{
			Failures: p.breaker.failures,
			OpenedAt: now,
		})
	}
	return pending
}

func (p *Pool) removeLocked(conn *Connection) {
	if _, ok := p.conns[conn.id]; !ok {
		return
	}
	delete(p.conns, conn.id)
	delete(p.byType[conn.typ], conn.id)
	p.destroyed++
}

func (p *Pool) closeConn(conn *Connection, reason string) error {
	var err error
	if res := conn.Resource(); res != nil {
		err = res.Close()
	}
	p.bus.Publish(events.ConnectionDestroyed{
		ConnectionID: conn.id,
		Type:         conn.typ,
		Reason:       reason,
	})
	p.logger.Debug("Destroyed connection", "id", conn.id, "type", conn.typ, "reason", reason)
	return err
}

func (p *Pool) publish(pending []events.Event) {
	for _, e := range pending {
		if ev, ok := e.(events.BreakerOpened); ok {
			p.logger.Warn("Circuit breaker opened", "failures", ev.Failures)
		}
		p.bus.Publish(e)
	}
}
