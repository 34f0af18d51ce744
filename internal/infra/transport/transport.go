// Package transport provides connection factories and health probes for the
// remote resources the pool manages.
//
// Supported resource types:
//   - http: a keep-alive HTTP client bound to a base URL
//   - grpc: a gRPC client connection, probed with the standard health service
//   - tcp:  a raw stream socket for IPC-style plugin channels
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/streamguard/internal/resilience/pool"
)

const (
	TypeHTTP = "http"
	TypeGRPC = "grpc"
	TypeTCP  = "tcp"
)

// MetadataURL is the AcquireOptions metadata key that overrides an
// endpoint's URL, or supplies one for an unregistered key.
const MetadataURL = "url"

// Endpoint describes one named remote resource.
type Endpoint struct {
	Name string
	Type string
	URL  string
	// HealthPath is the HTTP path probed for http endpoints, or the service
	// name checked for grpc endpoints.
	HealthPath string
	Timeout    time.Duration
}

// Factory creates resources for registered endpoints. The acquire key
// selects the endpoint by name.
type Factory struct {
	endpoints map[string]Endpoint
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFactory builds a factory for the given endpoints.
func NewFactory(endpoints []Endpoint, timeout time.Duration, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		m[ep.Name] = ep
	}
	return &Factory{endpoints: m, timeout: timeout, logger: logger}
}

// Endpoints returns the registered endpoints.
func (f *Factory) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(f.endpoints))
	for _, ep := range f.endpoints {
		out = append(out, ep)
	}
	return out
}

func (f *Factory) resolve(resourceType string, opts pool.AcquireOptions) (Endpoint, error) {
	ep, ok := f.endpoints[opts.Key]
	if !ok {
		ep = Endpoint{Name: opts.Key, Type: resourceType}
	}
	if u := opts.Metadata[MetadataURL]; u != "" {
		ep.URL = u
	}
	if ep.URL == "" {
		return Endpoint{}, fmt.Errorf("no url for %s resource %q", resourceType, opts.Key)
	}
	if ep.Type != "" && ep.Type != resourceType {
		return Endpoint{}, fmt.Errorf("resource %q is %s, not %s", opts.Key, ep.Type, resourceType)
	}
	if ep.Timeout <= 0 {
		ep.Timeout = f.timeout
	}
	return ep, nil
}

// Create implements pool.Factory.
func (f *Factory) Create(ctx context.Context, resourceType string, opts pool.AcquireOptions) (pool.Resource, error) {
	ep, err := f.resolve(resourceType, opts)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Opening connection", "type", resourceType, "name", ep.Name, "url", ep.URL)
	switch resourceType {
	case TypeHTTP:
		return NewHTTPClient(ep), nil
	case TypeGRPC:
		return DialGRPC(ctx, ep)
	case TypeTCP:
		return DialTCP(ctx, ep)
	default:
		return nil, fmt.Errorf("unsupported resource type %q", resourceType)
	}
}

// Probe implements pool.Prober for every resource type this package creates.
func Probe(ctx context.Context, r pool.Resource) error {
	switch res := r.(type) {
	case *HTTPClient:
		return res.Ping(ctx)
	case *GRPCConn:
		return res.Ping(ctx)
	case *TCPConn:
		return res.Ping(ctx)
	default:
		return fmt.Errorf("cannot probe resource of type %T", r)
	}
}

// Register installs the factory and probe for all supported types.
func Register(p *pool.Pool, f *Factory) {
	prober := pool.ProberFunc(Probe)
	for _, typ := range []string{TypeHTTP, TypeGRPC, TypeTCP} {
		p.RegisterType(typ, f, prober)
	}
}
