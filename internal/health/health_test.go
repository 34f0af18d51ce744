package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/streamguard/internal/resilience/cache"
	"github.com/vietddude/streamguard/internal/resilience/pool"
	"github.com/vietddude/streamguard/internal/resilience/recovery"
)

type stubPool struct{ stats pool.Stats }

func (s *stubPool) Stats() pool.Stats { return s.stats }

type stubCache struct{ stats cache.Stats }

func (s *stubCache) Stats() cache.Stats { return s.stats }

type stubRecovery struct{ stats recovery.Stats }

func (s *stubRecovery) Stats() recovery.Stats { return s.stats }

func TestMonitor_Healthy(t *testing.T) {
	m := NewMonitor(
		&stubPool{stats: pool.Stats{BreakerStateName: "closed", TotalConnections: 2, IdleConnections: 2}},
		&stubCache{stats: cache.Stats{Items: 3, Size: 100, MaxSize: 1000}},
		&stubRecovery{},
		0,
	)

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.Pool == nil || report.Pool.Idle != 2 {
		t.Errorf("unexpected pool report %+v", report.Pool)
	}
}

func TestMonitor_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name  string
		pool  pool.Stats
		cache cache.Stats
		rec   recovery.Stats
		want  SystemStatus
	}{
		{
			name: "breaker open",
			pool: pool.Stats{BreakerState: pool.BreakerOpen},
			want: StatusCritical,
		},
		{
			name: "failures accumulating",
			pool: pool.Stats{ConsecutiveFailures: 2},
			want: StatusDegraded,
		},
		{
			name:  "cache nearly full",
			cache: cache.Stats{Size: 950, MaxSize: 1000},
			want:  StatusDegraded,
		},
		{
			name: "recovery pending",
			rec:  recovery.Stats{Pending: 1},
			want: StatusDegraded,
		},
		{
			name: "critical beats degraded",
			pool: pool.Stats{BreakerState: pool.BreakerOpen},
			rec:  recovery.Stats{Pending: 3},
			want: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(&stubPool{stats: tt.pool}, &stubCache{stats: tt.cache}, &stubRecovery{stats: tt.rec}, 0)
			if got := m.CheckHealth(context.Background()).SystemStatus; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMonitor_NilSources(t *testing.T) {
	m := NewMonitor(nil, nil, nil, 0)
	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy || report.Pool != nil {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestServer_Endpoints(t *testing.T) {
	p := &stubPool{stats: pool.Stats{BreakerState: pool.BreakerOpen, BreakerStateName: "open"}}
	s := NewServer(NewMonitor(p, nil, nil, 0), 0)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "critical" {
		t.Errorf("unexpected body %v", body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Pool == nil || report.Pool.Breaker != "open" {
		t.Errorf("unexpected detailed report %+v", report)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "streamguard_pool_connections") {
		t.Error("metrics endpoint missing streamguard collectors")
	}
}
