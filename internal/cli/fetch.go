package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/streamguard/internal/control"
	"github.com/vietddude/streamguard/internal/resilience/cache"
)

var fetchTTL time.Duration

var fetchCmd = &cobra.Command{
	Use:   "fetch <resource> <path>",
	Short: "Fetch a JSON document from a configured http resource",
	Args:  cobra.ExactArgs(2),
	Run:   runFetch,
}

func init() {
	fetchCmd.Flags().DurationVar(&fetchTTL, "ttl", 0, "cache ttl (default cache.default_ttl)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	app, err := control.NewRuntime(control.Config{App: cfg})
	if err != nil {
		slog.Error("Failed to initialize runtime", "error", err)
		os.Exit(1)
	}
	var opts []cache.Option
	if fetchTTL > 0 {
		opts = append(opts, cache.WithTTL(fetchTTL))
	}

	body, err := app.Fetch(cmd.Context(), args[0], args[1], opts...)
	if stopErr := app.Stop(context.Background()); stopErr != nil {
		slog.Warn("Error during shutdown", "error", stopErr)
	}
	if err != nil {
		slog.Error("Fetch failed", "resource", args[0], "path", args[1], "error", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}
