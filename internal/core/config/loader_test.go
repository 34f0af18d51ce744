package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/core/policy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6380/1")
	t.Setenv("TEST_API_URL", "https://api.example.com")

	path := writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
resources:
  - name: platform
    type: http
    url: ${TEST_API_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380/1" {
		t.Errorf("Expected redis URL from env, got %s", cfg.Redis.URL)
	}
	if cfg.Resources[0].URL != "https://api.example.com" {
		t.Errorf("Expected resource URL from env, got %s", cfg.Resources[0].URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Pool.MaxConnections != 50 || cfg.Pool.BreakerThreshold != 5 {
		t.Errorf("pool defaults not applied: %+v", cfg.Pool)
	}
	if cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("cache defaults not applied: %+v", cfg.Cache)
	}
	if cfg.Redis.Channel == "" {
		t.Error("redis channel default not applied")
	}
}

func TestLoad_PolicyLayers(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pool:
  idle_timeout: 90s
  max_per_type:
    websocket: 2
policies:
  network:
    max_retries: 7
    base_delay: 250ms
retry:
  policies:
    network:
      strategy: linear
recovery:
  policies:
    rate_limit:
      max_retries: 1
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Pool.IdleTimeout != 90*time.Second {
		t.Errorf("Expected idle timeout 90s, got %v", cfg.Pool.IdleTimeout)
	}
	if cfg.PoolSettings().MaxPerType["websocket"] != 2 {
		t.Error("per-type limit not converted")
	}

	shared, _ := cfg.SharedPolicies()
	retryTable, _ := cfg.RetryPolicies()
	recoveryTable, _ := cfg.RecoveryPolicies()

	net := shared.Lookup(domain.CategoryNetwork)
	if net.MaxRetries != 7 || net.BaseDelay != 250*time.Millisecond || net.Strategy != policy.StrategyExponential {
		t.Errorf("unexpected shared network policy %+v", net)
	}

	rn := retryTable.Lookup(domain.CategoryNetwork)
	if rn.Strategy != policy.StrategyLinear || rn.MaxRetries != 7 {
		t.Errorf("unexpected retry network policy %+v", rn)
	}
	if recoveryTable.Lookup(domain.CategoryNetwork).Strategy != policy.StrategyExponential {
		t.Error("retry override leaked into recovery table")
	}
	if recoveryTable.Lookup(domain.CategoryRateLimit).MaxRetries != 1 {
		t.Error("recovery override not applied")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown category",
			content: "policies:\n  cosmic_rays:\n    max_retries: 1\n",
			want:    "unknown error category",
		},
		{
			name:    "unknown strategy",
			content: "retry:\n  policies:\n    network:\n      strategy: hopeful\n",
			want:    "unknown retry strategy",
		},
		{
			name:    "bad resource type",
			content: "resources:\n  - name: x\n    type: smoke-signal\n    url: http://x\n",
			want:    "unsupported type",
		},
		{
			name:    "duplicate resource",
			content: "resources:\n  - {name: a, type: http, url: http://a}\n  - {name: a, type: http, url: http://b}\n",
			want:    "duplicate name",
		},
		{
			name:    "missing url",
			content: "resources:\n  - {name: a, type: tcp}\n",
			want:    "url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/streamguard.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEndpoints(t *testing.T) {
	cfg, err := Parse([]byte("resources:\n  - {name: obs, type: grpc, url: localhost:4455, health_path: control}\n"))
	if err != nil {
		t.Fatal(err)
	}
	eps := cfg.Endpoints()
	if len(eps) != 1 || eps[0].HealthPath != "control" || eps[0].Timeout != 10*time.Second {
		t.Errorf("unexpected endpoints %+v", eps)
	}
}
