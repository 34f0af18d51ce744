package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/infra/transport"
	"github.com/vietddude/streamguard/internal/resilience/pool"
)

var errNotConnected = errors.New("not connected")

// Watch holds a long-lived connection to resource and keeps it alive until
// ctx ends. The connection is probed every interval; a lost connection is
// handed to the recovery orchestrator, which reconnects after the policy
// delay.
func (r *Runtime) Watch(ctx context.Context, resource string, interval time.Duration) error {
	typ, ok := r.resourceType(resource)
	if !ok {
		return fmt.Errorf("unknown resource %q", resource)
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &watcher{
		rt:       r,
		resource: resource,
		typ:      typ,
		timeout:  r.cfg.App.Pool.HealthCheckTimeout,
		errs:     make(chan error, 1),
	}
	if err := w.connect(ctx); err != nil {
		w.mu.Lock()
		w.queueLocked(err)
		w.mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.probeLoop(ctx, interval)
	}()

	err := r.Recovery.Supervise(ctx, resource, w.errs, w.connect)
	wg.Wait()
	w.release()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runtime) resourceType(name string) (string, bool) {
	for _, res := range r.cfg.App.Resources {
		if res.Name == name {
			return res.Type, true
		}
	}
	return "", false
}

type watcher struct {
	rt       *Runtime
	resource string
	typ      string
	timeout  time.Duration
	errs     chan error

	mu   sync.Mutex
	conn *pool.Connection
}

// connect replaces the held connection with a freshly probed one.
func (w *watcher) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.rt.Pool.Destroy(w.conn.ID())
		w.conn = nil
	}

	conn, err := w.rt.Pool.Acquire(ctx, w.typ, pool.AcquireOptions{Key: w.resource})
	if err != nil {
		return err
	}
	if err := w.probe(ctx, conn); err != nil {
		w.rt.Pool.Destroy(conn.ID())
		return err
	}
	w.conn = conn

	// Drop a notification queued while reconnecting.
	select {
	case <-w.errs:
	default:
	}
	w.rt.log.Info("Resource connected", "resource", w.resource, "type", w.typ, "id", conn.ID())
	return nil
}

func (w *watcher) probe(ctx context.Context, conn *pool.Connection) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return transport.Probe(ctx, conn.Resource())
}

func (w *watcher) probeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		conn := w.conn
		if conn == nil {
			w.queueLocked(domain.NewConnectionError(w.resource, domain.CategoryNetwork, errNotConnected, nil))
		}
		w.mu.Unlock()
		if conn == nil {
			continue
		}

		err := w.probe(ctx, conn)
		if err == nil || ctx.Err() != nil {
			continue
		}
		w.rt.log.Warn("Resource connection lost", "resource", w.resource, "error", err)
		w.mu.Lock()
		if w.conn == conn {
			w.rt.Pool.Destroy(conn.ID())
			w.conn = nil
			w.queueLocked(err)
		}
		w.mu.Unlock()
	}
}

// queueLocked hands err to the supervisor unless a notification is already
// waiting. w.mu must be held.
func (w *watcher) queueLocked(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

func (w *watcher) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.rt.Pool.Release(w.conn.ID())
		w.conn = nil
	}
}
