package pool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

func (p *Pool) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

type probeTarget struct {
	conn  *Connection
	entry typeEntry
}

// CheckHealth probes every idle connection whose type has a prober.
// Connections under probe are not handed out.
func (p *Pool) CheckHealth(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	var targets []probeTarget
	for _, conn := range p.conns {
		if conn.inUse || conn.probing {
			continue
		}
		entry := p.types[conn.typ]
		if entry.prober == nil {
			continue
		}
		conn.probing = true
		targets = append(targets, probeTarget{conn: conn, entry: entry})
	}
	p.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.ProbeConcurrency)
	for _, t := range targets {
		g.Go(func() error {
			p.probe(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("Health check complete", "probed", len(targets))
}

func (p *Pool) probe(ctx context.Context, t probeTarget) {
	conn := t.conn

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.HealthCheckTimeout)
	err := t.entry.prober.Probe(probeCtx, conn.Resource())
	cancel()

	p.mu.Lock()
	if _, alive := p.conns[conn.id]; !alive {
		conn.probing = false
		p.mu.Unlock()
		return
	}
	if err == nil {
		conn.probing = false
		conn.healthy = true
		conn.retries = 0
		p.mu.Unlock()
		return
	}

	conn.healthy = false
	conn.retries++
	if conn.retries > p.cfg.MaxHealthRetries {
		conn.probing = false
		p.removeLocked(conn)
		p.mu.Unlock()

		p.logger.Warn("Destroying unhealthy connection",
			"id", conn.id,
			"type", conn.typ,
			"retries", conn.retries-1,
			"error", err)
		_ = p.closeConn(conn, "unhealthy")
		return
	}
	p.mu.Unlock()

	p.logger.Debug("Connection failed health check, recreating",
		"id", conn.id,
		"type", conn.typ,
		"attempt", conn.retries,
		"error", err)
	p.recreate(ctx, t)
}

// recreate replaces the resource behind an unhealthy connection in place.
func (p *Pool) recreate(ctx context.Context, t probeTarget) {
	conn := t.conn

	createCtx := ctx
	if p.cfg.CreateTimeout > 0 {
		var cancel context.CancelFunc
		createCtx, cancel = context.WithTimeout(ctx, p.cfg.CreateTimeout)
		defer cancel()
	}
	res, err := t.entry.factory.Create(createCtx, conn.typ, AcquireOptions{
		Key:      conn.key,
		Metadata: conn.metadata,
	})

	p.mu.Lock()
	conn.probing = false
	if err != nil || res == nil {
		p.mu.Unlock()
		p.logger.Warn("Failed to recreate connection", "id", conn.id, "type", conn.typ, "error", err)
		return
	}
	if _, alive := p.conns[conn.id]; !alive {
		p.mu.Unlock()
		_ = res.Close()
		return
	}
	old := conn.swapResource(res)
	conn.healthy = true
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	p.logger.Info("Recreated connection", "id", conn.id, "type", conn.typ)
}

// Reap destroys idle connections past the idle timeout or maximum age,
// regardless of health. It returns the number destroyed.
func (p *Pool) Reap() int {
	p.mu.Lock()
	now := p.now()
	var expired []*Connection
	for _, conn := range p.conns {
		if conn.inUse || conn.probing {
			continue
		}
		idle := now.Sub(conn.lastUsed) > p.cfg.IdleTimeout
		old := p.cfg.MaxAge > 0 && now.Sub(conn.createdAt) > p.cfg.MaxAge
		if idle || old {
			expired = append(expired, conn)
		}
	}
	for _, conn := range expired {
		p.removeLocked(conn)
	}
	p.mu.Unlock()

	for _, conn := range expired {
		_ = p.closeConn(conn, "idle")
	}
	if len(expired) > 0 {
		p.logger.Debug("Reaped idle connections", "count", len(expired))
	}
	return len(expired)
}
