package e2e

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/vietddude/streamguard/internal/control"
	"github.com/vietddude/streamguard/internal/core/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestGracefulShutdown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := config.Default()
	cfg.Server.Port = freePort(t)
	cfg.Resources = []config.ResourceConfig{
		{Name: "stub", Type: "http", URL: upstream.URL, HealthPath: "/"},
	}

	app, err := control.NewRuntime(control.Config{App: cfg, Serve: true})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := app.Fetch(ctx, "stub", "/"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	healthURL := "http://127.0.0.1:" + strconv.Itoa(cfg.Server.Port) + "/health"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200 from /health, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("health server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	if _, err := http.Get(healthURL); err == nil {
		t.Error("expected health server to be stopped")
	}
}
