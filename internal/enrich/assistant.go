package enrich

import (
	"context"
	"fmt"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/models"
	"github.com/marketoracle/forecast/pkg/logger"
)

// AssistantProvider asks the assistant fallback chain for a short
// qualitative narrative about an event. It is enabled by its own
// toggle, independently of the news and sentiment sidecars (spec §9, §4.4).
type AssistantProvider struct {
	chain  *models.FallbackChain
	logger *logger.Logger
}

// NewAssistantProvider wraps chain as a ContextProvider.
func NewAssistantProvider(chain *models.FallbackChain, log *logger.Logger) *AssistantProvider {
	return &AssistantProvider{chain: chain, logger: log.WithField("component", "enrich.AssistantProvider")}
}

func (p *AssistantProvider) Name() string { return "assistant_narrative" }

// Enrich asks the fallback chain to summarize the likely drivers of
// event's outcome in a couple of sentences, for inclusion in every
// model's prompt. The chain never errors (spec §4.4's sentinel
// default), so a fallback_default result is treated as "nothing to add".
func (p *AssistantProvider) Enrich(ctx context.Context, event *contracts.Event) (*contracts.EnrichmentContext, error) {
	prompt := fmt.Sprintf(
		"In 2-3 sentences, summarize the key factors likely to drive the outcome of this question: %q. Do not give a probability, only context.",
		event.Question,
	)

	result := p.chain.Complete(ctx, prompt)
	if result.Source == models.FallbackSentinel || result.Text == "" {
		return nil, nil
	}

	return &contracts.EnrichmentContext{AssistantNarrative: &result.Text}, nil
}
