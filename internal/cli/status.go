package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/streamguard/internal/health"
	"github.com/vietddude/streamguard/internal/infra/transport"
	"github.com/vietddude/streamguard/internal/resilience/retry"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running instance",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "base url of the instance (default http://localhost:<server.port>)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	stylelog.InitDefault()

	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			slog.Error("Failed to load config", "error", err)
			os.Exit(1)
		}
		addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	client := transport.NewHTTPClient(transport.Endpoint{
		Name:    "self",
		Type:    transport.TypeHTTP,
		URL:     addr,
		Timeout: 5 * time.Second,
	})
	defer client.Close()

	ctx := context.Background()
	report, err := retry.Do(ctx, retry.New(), "status", func(ctx context.Context) (health.HealthReport, error) {
		var rep health.HealthReport
		body, err := client.Get(ctx, "/health/detailed")
		if err != nil {
			return rep, err
		}
		return rep, json.Unmarshal(body, &rep)
	}, retry.WithMaxRetries(2))
	if err != nil {
		slog.Error("Failed to query instance", "addr", addr, "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", "system", report.SystemStatus, report.CheckedAt.Format(time.RFC3339))
	if p := report.Pool; p != nil {
		_, _ = fmt.Fprintf(w, "%s\t%s\tbreaker=%s total=%d active=%d idle=%d\n",
			"pool", p.Status, p.Breaker, p.Total, p.Active, p.Idle)
	}
	if c := report.Cache; c != nil {
		_, _ = fmt.Fprintf(w, "%s\t%s\titems=%d size=%d/%d hit_rate=%.2f\n",
			"cache", c.Status, c.Items, c.Size, c.MaxSize, c.HitRate)
	}
	if r := report.Recovery; r != nil {
		_, _ = fmt.Fprintf(w, "%s\t%s\tpending=%d errors=%d\n",
			"recovery", r.Status, r.Pending, r.TotalErrors)
	}
	_ = w.Flush()
}
