package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketoracle/forecast/pkg/config"
)

var testConfigCmd = &cobra.Command{
	Use:   "test-config",
	Short: "Load configuration and print a summary",
	Long: `Runs config.Load() in isolation and prints the resolved values,
the same diagnostic shape as the reference's own test-db command:
confirm configuration loads and validates before wiring up the rest
of the pipeline.

Example:
  go run ./cmd/forecast test-config`,
	RunE: runTestConfig,
}

func init() {
	rootCmd.AddCommand(testConfigCmd)
}

func runTestConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("=== forecast config test ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Printf("Env:                %s\n", cfg.Env)
	fmt.Printf("Port:               %s\n", cfg.Port)
	fmt.Printf("Log level/format:   %s / %s\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Printf("Configured models:  %d\n", len(cfg.Models))
	for _, m := range cfg.Models {
		fmt.Printf("  - %s (weight=%.2f enabled=%v)\n", m.ID, m.BaseWeight, m.Enabled)
	}
	fmt.Printf("Market sources:     structured=%s secondary=%s scrape=%s\n",
		cfg.MarketSources.StructuredBaseURL, cfg.MarketSources.SecondaryBaseURL, cfg.MarketSources.ScrapeBaseURL)
	fmt.Printf("Timeouts:           model=%ds batch=auto total=%ds market=%ds\n",
		cfg.Timeouts.ModelCallSec, cfg.Timeouts.TotalSec, cfg.Timeouts.MarketSec)
	fmt.Printf("Low-prob threshold: %.2f%%\n", cfg.LowProbabilityThreshold)
	fmt.Printf("Enrichment toggles: news=%v worldSentiment=%v assistant=%v\n",
		cfg.EnrichmentToggles.News, cfg.EnrichmentToggles.WorldSentiment, cfg.EnrichmentToggles.Assistant)
	fmt.Printf("Metrics enabled:    %v\n", cfg.MetricsEnabled)
	fmt.Printf("Scheduler enabled:  %v (cron=%q watchlist=%d entries)\n",
		cfg.SchedulerEnabled, cfg.SchedulerCron, len(cfg.SchedulerWatchlist))

	fmt.Println("\n✅ Config loaded and validated successfully")
	return nil
}
