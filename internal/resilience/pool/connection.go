package pool

import (
	"context"
	"sync"
	"time"
)

// Resource is the live remote handle a connection wraps.
type Resource interface {
	Close() error
}

// AcquireOptions select and parameterize a connection.
type AcquireOptions struct {
	// Key correlates a connection with a logical target such as a chat room.
	// Only connections created with the same key are reused.
	Key string
	// Metadata is passed to the factory when a connection must be created.
	Metadata map[string]string
}

// Factory creates resources of a given type.
type Factory interface {
	Create(ctx context.Context, resourceType string, opts AcquireOptions) (Resource, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, resourceType string, opts AcquireOptions) (Resource, error)

// Create implements Factory.
func (f FactoryFunc) Create(ctx context.Context, resourceType string, opts AcquireOptions) (Resource, error) {
	return f(ctx, resourceType, opts)
}

// Prober checks that an idle resource is still usable. A nil error means
// healthy. The context carries the health check timeout.
type Prober interface {
	Probe(ctx context.Context, r Resource) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, r Resource) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, r Resource) error {
	return f(ctx, r)
}

// Connection is a pooled handle. Callers hold it only between Acquire and
// Release; the pool owns its lifecycle.
type Connection struct {
	id        string
	typ       string
	key       string
	metadata  map[string]string
	createdAt time.Time

	resMu    sync.RWMutex
	resource Resource

	// guarded by Pool.mu
	lastUsed time.Time
	inUse    bool
	healthy  bool
	probing  bool
	retries  int
}

// ID returns the unique connection id.
func (c *Connection) ID() string { return c.id }

// Type returns the resource type tag.
func (c *Connection) Type() string { return c.typ }

// Key returns the correlation key.
func (c *Connection) Key() string { return c.key }

// CreatedAt returns when the connection was created.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// Resource returns the underlying live resource.
func (c *Connection) Resource() Resource {
	c.resMu.RLock()
	defer c.resMu.RUnlock()
	return c.resource
}

func (c *Connection) swapResource(r Resource) Resource {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	old := c.resource
	c.resource = r
	return old
}

// ConnectionInfo is a point-in-time snapshot of a connection.
type ConnectionInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Key       string    `json:"key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	InUse     bool      `json:"in_use"`
	Healthy   bool      `json:"healthy"`
	Retries   int       `json:"retries"`
}

func (c *Connection) info() ConnectionInfo {
	return ConnectionInfo{
		ID:        c.id,
		Type:      c.typ,
		Key:       c.key,
		CreatedAt: c.createdAt,
		LastUsed:  c.lastUsed,
		InUse:     c.inUse,
		Healthy:   c.healthy,
		Retries:   c.retries,
	}
}
