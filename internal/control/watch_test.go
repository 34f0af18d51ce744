package control

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/streamguard/internal/core/config"
	"github.com/vietddude/streamguard/internal/core/events"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type tcpPeer struct {
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func listenTCP(t *testing.T, addr string) *tcpPeer {
	t.Helper()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	p := &tcpPeer{ln: ln}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			p.mu.Lock()
			p.conns = append(p.conns, c)
			p.mu.Unlock()
		}
	}()
	return p
}

func (p *tcpPeer) Close() {
	_ = p.ln.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		_ = c.Close()
	}
}

func TestRuntime_WatchRecoversLostResource(t *testing.T) {
	// Reserve a port, then leave it closed so the first connect fails.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := "127.0.0.1:" + strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	_ = l.Close()

	cfg := config.Default()
	cfg.Pool.HealthCheckInterval = 20 * time.Millisecond
	cfg.Pool.BreakerThreshold = 1000
	cfg.Resources = []config.ResourceConfig{
		{Name: "plugin", Type: "tcp", URL: "tcp://" + addr, Timeout: time.Second},
	}
	fixed := "fixed"
	retries := 1000
	delay := 10 * time.Millisecond
	noJitter := false
	cfg.Recovery.Policies = map[string]config.PolicyConfig{
		"network": {Strategy: &fixed, MaxRetries: &retries, BaseDelay: &delay, MaxDelay: &delay, Jitter: &noJitter},
	}

	r, err := NewRuntime(Config{App: cfg})
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	defer func() { _ = r.Stop(context.Background()) }()

	var attempts, successes atomic.Int32
	events.Subscribe(r.Bus, func(e events.RecoveryAttempt) {
		if e.ResourceID == "plugin" {
			attempts.Add(1)
		}
	})
	events.Subscribe(r.Bus, func(e events.RecoverySuccess) {
		if e.ResourceID == "plugin" {
			successes.Add(1)
		}
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	eventually(t, "recovery attempt while peer is down", func() bool { return attempts.Load() > 0 })
	if r.Pool.Stats().ActiveConnections != 0 {
		t.Fatal("expected no connection while peer is down")
	}

	peer := listenTCP(t, addr)
	eventually(t, "reconnect", func() bool {
		return successes.Load() > 0 && r.Pool.Stats().ActiveConnections == 1
	})

	before := attempts.Load()
	peer.Close()
	eventually(t, "loss detection", func() bool {
		return attempts.Load() > before && r.Pool.Stats().ActiveConnections == 0
	})

	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestRuntime_WatchUnknownResource(t *testing.T) {
	r, err := NewRuntime(Config{})
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	defer func() { _ = r.Stop(context.Background()) }()

	if err := r.Watch(context.Background(), "missing", time.Second); err == nil {
		t.Error("expected error for unknown resource")
	}
}
