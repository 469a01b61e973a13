package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the configured model registry",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured model, its weight, and enabled state",
	Long: `Loads configuration and dumps the ModelRegistry (spec §4.4, §6):
model ID, display name, endpoint, base weight, enabled flag, and
fallback model ID (if any).

Example:
  go run ./cmd/forecast models list`,
	RunE: runModelsList,
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	deps, err := initForecastDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.close()

	entries := deps.registry.All()
	if len(entries) == 0 {
		fmt.Println("No models configured.")
		return nil
	}

	fmt.Printf("%-20s %-12s %-8s %-8s %s\n", "MODEL ID", "WEIGHT", "ENABLED", "FALLBACK", "ENDPOINT")
	for _, e := range entries {
		fallback := e.Fallback
		if fallback == "" {
			fallback = "-"
		}
		fmt.Printf("%-20s %-12.2f %-8v %-8s %s\n", e.ModelID, e.BaseWeight, e.Enabled, fallback, e.Endpoint)
	}
	return nil
}
