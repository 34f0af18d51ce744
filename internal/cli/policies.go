package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/streamguard/internal/core/domain"
	"github.com/vietddude/streamguard/internal/core/policy"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Print the effective retry and recovery policies",
	Run:   runPolicies,
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}

func runPolicies(cmd *cobra.Command, args []string) {
	stylelog.InitDefault()

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	retryTable, err := cfg.RetryPolicies()
	if err != nil {
		slog.Error("Invalid retry policies", "error", err)
		os.Exit(1)
	}
	recoveryTable, err := cfg.RecoveryPolicies()
	if err != nil {
		slog.Error("Invalid recovery policies", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PATH\tCATEGORY\tSTRATEGY\tRETRIES\tBASE\tMAX\tTIMEOUT\tJITTER")
	for _, path := range []struct {
		name  string
		table *policy.Table
	}{{"retry", retryTable}, {"recovery", recoveryTable}} {
		for _, cat := range domain.Categories {
			c := path.table.Lookup(cat)
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%t\n",
				path.name, cat, c.Strategy, c.MaxRetries, c.BaseDelay, c.MaxDelay, c.Timeout, c.Jitter)
		}
	}
	_ = w.Flush()
}
