package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketoracle/forecast/pkg/config"
	"github.com/marketoracle/forecast/pkg/logger"
)

var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Exercise the structured logger in both output formats",
	Long: `Builds a logger.Logger in both console and JSON formats and emits
sample entries at every level, with and without fields/errors attached
— the same smoke test the reference's own test-logger command runs
before the pipeline ever touches it.

Example:
  go run ./cmd/forecast test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== forecast logger test ===")

	fmt.Println("1. Console format (development)")
	consoleLog := logger.New(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"})
	consoleLog.Debug("debug message visible in console mode")
	consoleLog.Info("pipeline stage entry")
	consoleLog.Warn("per-model timeout, falling back to partial pool")

	fmt.Println("\n2. JSON format (production)")
	jsonLog := logger.New(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"})
	jsonLog.Info("forecast service started")
	jsonLog.
		WithField("component", "ModelOrchestrator").
		WithFields(map[string]interface{}{
			"outcome": "Will X happen by 2027",
			"modelID": "gpt-4o",
			"stage":   "dispatch",
		}).
		Warn("model call timed out, retrying")

	fmt.Println("\n3. Error logging")
	err := errors.New("all sources failed")
	jsonLog.
		WithError(err).
		WithField("component", "MarketGateway").
		Error("market resolution failed after cascading fallback")

	fmt.Println("\n✅ Logger test completed")
	return nil
}
