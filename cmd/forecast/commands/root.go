package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forecast",
	Short: "LLM-ensemble prediction-market forecasting CLI",
	Long: `forecast

Resolves a prediction-market event, dispatches it to a multi-model
ensemble under per-call and per-batch deadlines, fuses the responses
with market-blended weighting, and emits a trade signal.

Usage:
  go run ./cmd/forecast [command]

Examples:
  go run ./cmd/forecast predict "will-x-happen-by-2027"
  go run ./cmd/forecast serve
  go run ./cmd/forecast models list
  go run ./cmd/forecast test-config
  go run ./cmd/forecast test-logger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (not read: configuration always comes from .env and the environment)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (not read: the ENV variable selects it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (not read: LOG_LEVEL sets verbosity)")
}
