package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/streamguard/internal/core/classify"
	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/resilience/pool"
)

func TestHTTPClient_GetAndPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/room":
			w.Write([]byte(`{"viewers":10}`))
		default:
			http.Error(w, "try later", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(Endpoint{Name: "api", URL: srv.URL + "/", HealthPath: "/healthz", Timeout: time.Second})
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	body, err := c.Get(ctx, "/room")
	if err != nil || string(body) != `{"viewers":10}` {
		t.Fatalf("get: %q, %v", body, err)
	}

	_, err = c.Get(ctx, "/gifts")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}
	if cat := classify.Default().Classify(err); cat != domain.CategoryServer {
		t.Errorf("expected server category, got %s", cat)
	}
}

func TestFactory_ResolvesEndpoints(t *testing.T) {
	f := NewFactory([]Endpoint{
		{Name: "api", Type: TypeHTTP, URL: "http://example.invalid"},
	}, time.Second, nil)
	ctx := context.Background()

	r, err := f.Create(ctx, TypeHTTP, pool.AcquireOptions{Key: "api"})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.(*HTTPClient).BaseURL(); got != "http://example.invalid" {
		t.Errorf("unexpected base url %s", got)
	}

	r, err = f.Create(ctx, TypeHTTP, pool.AcquireOptions{
		Key:      "adhoc",
		Metadata: map[string]string{MetadataURL: "http://other.invalid"},
	})
	if err != nil || r.(*HTTPClient).BaseURL() != "http://other.invalid" {
		t.Errorf("metadata url not honoured: %v", err)
	}

	if _, err := f.Create(ctx, TypeHTTP, pool.AcquireOptions{Key: "missing"}); err == nil {
		t.Error("expected error for unknown endpoint without url")
	}
	if _, err := f.Create(ctx, TypeTCP, pool.AcquireOptions{Key: "api"}); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestTCP_DialAndPing(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ctx := context.Background()
	c, err := DialTCP(ctx, Endpoint{Name: "plugin", URL: "tcp://" + ln.Addr().String(), Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := Probe(ctx, c); err != nil {
		t.Errorf("probe: %v", err)
	}

	ln.Close()
	err = Probe(ctx, c)
	if err == nil {
		t.Fatal("expected probe failure after listener closed")
	}
	if cat := classify.Default().Classify(err); cat != domain.CategoryNetwork {
		t.Errorf("expected network category, got %s", cat)
	}
}

func TestGRPC_HealthProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("control", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(ln)
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := DialGRPC(ctx, Endpoint{Name: "obs", URL: ln.Addr().String(), HealthPath: "control"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := Probe(ctx, c); err != nil {
		t.Fatalf("probe: %v", err)
	}

	hs.SetServingStatus("control", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := Probe(ctx, c); err == nil || !strings.Contains(err.Error(), "NOT_SERVING") {
		t.Errorf("expected not serving error, got %v", err)
	}
}

func TestRegister_PoolIntegration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := pool.New(pool.Config{MaxConnections: 2})
	defer p.Close()
	Register(p, NewFactory([]Endpoint{{Name: "api", Type: TypeHTTP, URL: srv.URL}}, time.Second, nil))

	conn, err := p.Acquire(context.Background(), TypeHTTP, pool.AcquireOptions{Key: "api"})
	if err != nil {
		t.Fatal(err)
	}
	p.Release(conn.ID())
	p.CheckHealth(context.Background())

	info, ok := p.Inspect(conn.ID())
	if !ok || !info.Healthy || info.Retries != 0 {
		t.Errorf("expected healthy pooled connection, got %+v", info)
	}
}

func TestProbe_UnknownResource(t *testing.T) {
	if err := Probe(context.Background(), fakeResource{}); err == nil {
		t.Error("expected error for foreign resource")
	}
}

type fakeResource struct{}

func (fakeResource) Close() error { return nil }

func TestStatusError_ClassifiedByCode(t *testing.T) {
	c := classify.Default()

	tests := []struct {
		err    *StatusError
		expect domain.ErrorCategory
	}{
		{&StatusError{Code: 400, Body: `{"error":"network_id is required"}`}, domain.CategoryClient},
		{&StatusError{Code: 400, Body: "invalid timeout parameter"}, domain.CategoryClient},
		{&StatusError{Code: 404, Body: "authentication field malformed"}, domain.CategoryClient},
		{&StatusError{Code: 401, Body: "connection refused"}, domain.CategoryAuthentication},
		{&StatusError{Code: 429}, domain.CategoryRateLimit},
		{&StatusError{Code: 504}, domain.CategoryServer},
		{&StatusError{Code: 503, Body: "timeout"}, domain.CategoryServer},
	}

	for _, tt := range tests {
		if got := c.Classify(fmt.Errorf("fetch: %w", tt.err)); got != tt.expect {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}
