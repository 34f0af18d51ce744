package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/streamguard/internal/control"
	"github.com/vietddude/streamguard/internal/core/config"
	"github.com/vietddude/streamguard/internal/resilience/retry"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	STREAM_API_URL := os.Getenv("STREAM_API_URL")
	STREAM_API_TOKEN := os.Getenv("STREAM_API_TOKEN")
	if STREAM_API_URL == "" {
		log.Fatalf("STREAM_API_URL is not set")
	}
	path := os.Getenv("STREAM_API_PATH")
	if path == "" {
		path = "/"
	}

	ctx := context.Background()

	// 1. Describe the platform
	cfg := config.Default()
	cfg.Resources = []config.ResourceConfig{
		{Name: "platform", Type: "http", URL: STREAM_API_URL, Timeout: 30 * time.Second},
	}

	// 2. Token refresh hook for authentication failures
	refresher := retry.RefreshFunc(func(ctx context.Context) (retry.RefreshResult, error) {
		if STREAM_API_TOKEN == "" {
			return retry.RefreshResult{RequiresInteractiveReauth: true, Message: "no token configured"}, nil
		}
		return retry.RefreshResult{Success: true}, nil
	})

	// 3. Build the runtime
	app, err := control.NewRuntime(control.Config{App: cfg, Refresher: refresher})
	if err != nil {
		log.Fatalf("Failed to init runtime: %v", err)
	}
	defer func() { _ = app.Stop(ctx) }()

	fmt.Println("=== Fetching through pool, retry and cache ===")

	// 4. Repeat the same request; only the first should reach the platform
	for i := 0; i < 5; i++ {
		start := time.Now()
		body, err := app.Fetch(ctx, "platform", path)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Printf("Call %d timed out", i+1)
			} else {
				log.Printf("Call %d failed: %v", i+1, err)
			}
			continue
		}
		fmt.Printf("Call %d: %d bytes in %v\n", i+1, len(body), time.Since(start).Round(time.Microsecond))
	}

	fmt.Println()

	// 5. Component stats
	ps := app.Pool.Stats()
	fmt.Println("=== Pool ===")
	fmt.Printf("  Connections: %d (active %d, idle %d)\n", ps.TotalConnections, ps.ActiveConnections, ps.IdleConnections)
	fmt.Printf("  Created: %d  Reused: %d  Breaker: %s\n", ps.Created, ps.Reused, ps.BreakerStateName)

	rs := app.Retry.Stats("platform:" + path)
	fmt.Println("=== Retry ===")
	fmt.Printf("  Attempts: %d  Retries: %d  Successes: %d  Failures: %d\n",
		rs.TotalAttempts, rs.TotalRetries, rs.Successes, rs.Failures)

	cs := app.Cache.Stats()
	fmt.Println("=== Cache ===")
	fmt.Printf("  Items: %d  Size: %d bytes  Hit rate: %.1f%%\n", cs.Items, cs.Size, cs.HitRate*100)

	// 6. Overall health
	fmt.Printf("\nSystem status: %s\n", app.Health(ctx).SystemStatus)
}
