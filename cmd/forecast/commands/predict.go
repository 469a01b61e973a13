package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketoracle/forecast/internal/contracts"
)

var predictJSON bool

var predictCmd = &cobra.Command{
	Use:   "predict <reference>",
	Short: "Run one pipeline invocation against a market reference",
	Long: `Resolves reference (a market slug, a market URL, or free text) and
runs the full seven-component pipeline once, printing the resulting
Prediction envelope.

Example:
  go run ./cmd/forecast predict will-the-fed-cut-rates-in-2026
  go run ./cmd/forecast predict "https://polymarket.com/event/some-market" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the Prediction envelope as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	deps, err := initForecastDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.close()

	ref := referenceFromArg(args[0])
	pred := deps.coordinator.Run(cmd.Context(), ref)

	if predictJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pred)
	}

	printPrediction(pred)
	return nil
}

// referenceFromArg guesses which EventReference field a bare CLI
// argument populates: an http(s) URL goes to MarketURL, anything else
// is treated as a slug since that's the common case for a known
// market. No separate free-text attempt is made.
func referenceFromArg(arg string) contracts.EventReference {
	if len(arg) > 8 && (arg[:7] == "http://" || arg[:8] == "https://") {
		return contracts.EventReference{MarketURL: arg}
	}
	return contracts.EventReference{Slug: arg}
}

func printPrediction(pred *contracts.Prediction) {
	fmt.Printf("Question:          %s\n", pred.Event.Question)
	fmt.Printf("Market slug:       %s\n", pred.Event.MarketSlug)
	fmt.Printf("Family type:       %s\n", pred.Event.FamilyType)
	fmt.Printf("Category:          %s\n", pred.Event.Category)
	fmt.Printf("Completed stages:  %v\n", pred.CompletedStages)
	if pred.TimedOut {
		fmt.Println("TIMED OUT")
	}
	if pred.LowProbability {
		fmt.Println("Skipped: market probability below low-probability threshold")
	}
	for _, o := range pred.Outcomes {
		fmt.Printf("\nOutcome: %s\n", o.OutcomeName)
		if o.ModelOnlyProb != nil {
			fmt.Printf("  Model-only probability: %.2f%%\n", *o.ModelOnlyProb)
		}
		if o.BlendedProb != nil {
			fmt.Printf("  Blended probability:    %.2f%%\n", *o.BlendedProb)
		}
		fmt.Printf("  Uncertainty:            %.2f\n", o.Uncertainty)
		fmt.Printf("  Disagreement:           %.2f\n", o.Disagreement)
	}
	if pred.TradeSignal != nil {
		fmt.Printf("\nTrade signal: %s (EV=%.2f%%, risk=%.2f)\n", pred.TradeSignal.Signal, pred.TradeSignal.EV, pred.TradeSignal.RiskFactor)
	}
	if len(pred.Notices) > 0 {
		fmt.Printf("\nNotices:\n")
		for _, n := range pred.Notices {
			fmt.Printf("  - %s\n", n)
		}
	}
}
