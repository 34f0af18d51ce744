package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/streamguard/internal/core/config"
	"github.com/vietddude/streamguard/internal/core/events"
	"github.com/vietddude/streamguard/internal/health"
	redisclient "github.com/vietddude/streamguard/internal/infra/redis"
	"github.com/vietddude/streamguard/internal/infra/transport"
	"github.com/vietddude/streamguard/internal/resilience/cache"
	"github.com/vietddude/streamguard/internal/resilience/pool"
	"github.com/vietddude/streamguard/internal/resilience/recovery"
	"github.com/vietddude/streamguard/internal/resilience/retry"
	"github.com/vietddude/streamguard/internal/telemetry/metrics"
)

// Config holds the runtime configuration.
type Config struct {
	App *config.AppConfig
	// Refresher renews platform credentials after authentication failures.
	Refresher retry.CredentialRefresher
	// Serve starts the health and metrics HTTP server.
	Serve bool
}

// Runtime owns the single instance of every resilience component and tears
// them down in order.
type Runtime struct {
	Bus      *events.Bus
	Pool     *pool.Pool
	Retry    *retry.Engine
	Recovery *recovery.Orchestrator
	Cache    *cache.Cache
	Factory  *transport.Factory

	cfg          Config
	healthMon    *health.Monitor
	healthServer *health.Server
	redisClient  *redisclient.Client
	publisher    *redisclient.Publisher
	detach       []func()
	log          *slog.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// NewRuntime creates a Runtime with all dependencies initialized.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.App == nil {
		cfg.App = config.Default()
	}
	app := cfg.App
	log := slog.Default()

	retryPolicies, err := app.RetryPolicies()
	if err != nil {
		return nil, fmt.Errorf("retry policies: %w", err)
	}
	recoveryPolicies, err := app.RecoveryPolicies()
	if err != nil {
		return nil, fmt.Errorf("recovery policies: %w", err)
	}

	bus := events.NewBus()
	r := &Runtime{Bus: bus, cfg: cfg, log: log}
	r.detach = append(r.detach,
		events.AttachLogger(bus, log),
		metrics.Attach(bus),
	)

	if app.Redis.URL != "" {
		client, err := redisclient.NewClient(app.Redis)
		if err != nil {
			r.teardown()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		r.redisClient = client
		r.publisher = redisclient.AttachPublisher(bus, client, app.Redis.Channel, 0, log)
		log.Info("Publishing events to Redis", "channel", app.Redis.Channel)
	}

	r.Cache, err = cache.New(app.CacheSettings(), cache.WithLogger(log), cache.WithEventBus(bus))
	if err != nil {
		r.teardown()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	r.Pool = pool.New(app.PoolSettings(), pool.WithLogger(log), pool.WithEventBus(bus))
	r.Factory = transport.NewFactory(app.Endpoints(), app.Pool.CreateTimeout, log)
	transport.Register(r.Pool, r.Factory)

	retryOpts := []retry.Option{
		retry.WithLogger(log),
		retry.WithEventBus(bus),
		retry.WithPolicies(retryPolicies),
	}
	if cfg.Refresher != nil {
		retryOpts = append(retryOpts, retry.WithRefresher(cfg.Refresher))
	}
	r.Retry = retry.New(retryOpts...)

	r.Recovery = recovery.New(
		recovery.WithLogger(log),
		recovery.WithEventBus(bus),
		recovery.WithPolicies(recoveryPolicies),
	)

	r.healthMon = health.NewMonitor(r.Pool, r.Cache, r.Recovery, time.Second)
	if cfg.Serve {
		r.healthServer = health.NewServer(r.healthMon, app.Server.Port)
	}

	log.Info("Runtime initialized",
		"resources", len(app.Resources),
		"max_connections", app.Pool.MaxConnections,
		"cache_max_items", app.Cache.MaxItems)
	return r, nil
}

// Start starts the health server, the health monitor and a watcher for
// every long-lived (tcp and grpc) resource. They run until Stop.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	if r.healthServer != nil {
		r.goFunc(func() {
			if err := r.healthServer.Start(); err != nil {
				r.log.Error("Health server failed", "error", err)
			}
		})
		r.log.Info("Health server listening", "port", r.cfg.App.Server.Port)
	}

	r.goFunc(func() { r.healthMon.Start(ctx, 15*time.Second) })

	for _, res := range r.cfg.App.Resources {
		if res.Type != transport.TypeTCP && res.Type != transport.TypeGRPC {
			continue
		}
		name := res.Name
		r.goFunc(func() {
			if err := r.Watch(ctx, name, r.cfg.App.Pool.HealthCheckInterval); err != nil {
				r.log.Error("Resource watcher stopped", "resource", name, "error", err)
			}
		})
	}
	return nil
}

func (r *Runtime) goFunc(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// Health returns the current health report.
func (r *Runtime) Health(ctx context.Context) health.HealthReport {
	return r.healthMon.CheckHealth(ctx)
}

// Fetch reads path from a named http resource. Responses are cached, and
// each miss runs under the retry engine with a pooled connection per
// attempt.
func (r *Runtime) Fetch(ctx context.Context, resource, path string, opts ...cache.Option) (json.RawMessage, error) {
	key := resource + ":" + path
	return cache.GetOrLoad(ctx, r.Cache, key, func(ctx context.Context) (json.RawMessage, error) {
		return retry.Do(ctx, r.Retry, key, func(ctx context.Context) (json.RawMessage, error) {
			return r.fetchOnce(ctx, resource, path)
		})
	}, opts...)
}

func (r *Runtime) fetchOnce(ctx context.Context, resource, path string) (json.RawMessage, error) {
	conn, err := r.Pool.Acquire(ctx, transport.TypeHTTP, pool.AcquireOptions{Key: resource})
	if err != nil {
		return nil, err
	}

	client, ok := conn.Resource().(*transport.HTTPClient)
	if !ok {
		r.Pool.Destroy(conn.ID())
		return nil, fmt.Errorf("resource %q is not an http client", resource)
	}

	body, err := client.Get(ctx, path)
	if err != nil {
		var se *transport.StatusError
		if !errors.As(err, &se) {
			// Transport failure: let the health check rebuild it.
			r.Pool.MarkUnhealthy(conn.ID())
		}
		r.Pool.Release(conn.ID())
		return nil, err
	}
	r.Pool.Release(conn.ID())

	if !json.Valid(body) {
		return nil, fmt.Errorf("resource %q returned invalid JSON for %s", resource, path)
	}
	return json.RawMessage(body), nil
}

// Stop cancels the background tasks started by Start, waits for them, and
// closes every component. Calls after the first return the same result.
func (r *Runtime) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.log.Info("Stopping runtime...")

		var errs []error
		if r.cancel != nil {
			r.cancel()
		}
		if r.healthServer != nil {
			if err := r.healthServer.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("health server: %w", err))
			}
		}
		r.wg.Wait()

		errs = append(errs, r.teardown())
		r.stopErr = errors.Join(errs...)
	})
	return r.stopErr
}

func (r *Runtime) teardown() error {
	var errs []error
	if r.Recovery != nil {
		errs = append(errs, r.Recovery.Close())
	}
	if r.Pool != nil {
		if err := r.Pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pool: %w", err))
		}
	}
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if r.publisher != nil {
		r.publisher.Close()
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.Warn("Failed to close Redis", "error", err)
		}
	}
	for _, detach := range r.detach {
		detach()
	}
	r.detach = nil
	return errors.Join(errs...)
}
