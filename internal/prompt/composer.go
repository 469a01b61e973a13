// Package prompt implements PromptComposer (C3): building a per-model
// prompt from event data, an assigned analytic dimension, and optional
// enrichment context. Never invokes models or the network.
package prompt

import (
	"fmt"
	"strings"

	"github.com/marketoracle/forecast/internal/contracts"
)

const rulesCap = 600

// dimensionInstructions gives each analytic viewpoint a short framing
// sentence so the same event produces differently-angled prompts per
// model (spec §4.2/§4.3).
var dimensionInstructions = map[contracts.Dimension]string{
	contracts.DimensionStatisticalBaseRate: "Reason primarily from historical base rates for similar events.",
	contracts.DimensionQualitativeRisk:     "Reason primarily about qualitative risks and tail scenarios that could flip the outcome.",
	contracts.DimensionPatternMatch:        "Reason primarily by pattern-matching this event against comparable past events.",
	contracts.DimensionPolicyDomain:        "Reason primarily from domain/policy expertise relevant to this question.",
	contracts.DimensionNarrativeContext:    "Reason primarily from the current narrative and momentum surrounding this event.",
}

// schemaInstruction demands the strict JSON object the tolerant
// extractor in internal/models looks for.
const schemaInstruction = `Respond with a single JSON object and nothing else, in the form:
{"probability": <number 0-100>, "confidence": "low"|"medium"|"high", "reasoning": "<brief string>"}`

// Composer is the C3 PromptComposer implementation.
type Composer struct{}

// NewComposer builds a Composer. It holds no state.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the prompt text for one (event, outcome, model,
// dimension) tuple.
func (c *Composer) Compose(event *contracts.Event, outcomeIdx int, modelID string, dim contracts.Dimension, enrich *contracts.EnrichmentContext) (string, error) {
	if outcomeIdx < 0 || outcomeIdx >= len(event.Outcomes) {
		return "", fmt.Errorf("outcome index %d out of range for event with %d outcomes", outcomeIdx, len(event.Outcomes))
	}
	outcome := event.Outcomes[outcomeIdx]

	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n", event.Question)
	if event.IsMultiOption() {
		fmt.Fprintf(&b, "Outcome under evaluation: %s\n", outcome.Name)
	}

	if rules := truncate(event.Rules, rulesCap); rules != "" {
		fmt.Fprintf(&b, "Rules: %s\n", rules)
	}

	if outcome.MarketProbability != nil {
		fmt.Fprintf(&b, "Current market probability: %.2f%%\n", *outcome.MarketProbability)
	}

	if event.DaysToResolution != nil {
		fmt.Fprintf(&b, "Days to resolution: %.1f\n", *event.DaysToResolution)
	}

	if instruction, ok := dimensionInstructions[dim]; ok {
		fmt.Fprintf(&b, "\nAnalytic focus: %s\n", instruction)
	}

	if enrich != nil {
		if enrich.WorldTemperature != nil {
			fmt.Fprintf(&b, "World temperature indicator: %.2f\n", *enrich.WorldTemperature)
		}
		if enrich.NewsSummary != nil && *enrich.NewsSummary != "" {
			fmt.Fprintf(&b, "Recent news summary: %s\n", *enrich.NewsSummary)
		}
		if enrich.AssistantNarrative != nil && *enrich.AssistantNarrative != "" {
			fmt.Fprintf(&b, "Assistant-provided narrative: %s\n", *enrich.AssistantNarrative)
		}
	}

	b.WriteString("\n")
	b.WriteString(schemaInstruction)

	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
