package models

import (
	"context"
	"time"

	"github.com/marketoracle/forecast/pkg/logger"
	"github.com/marketoracle/forecast/pkg/metrics"
)

const fallbackProviderTimeout = 20 * time.Second

// FallbackSentinel is the source value stamped on a response when
// every provider in the chain failed (spec §4.4: "a sentinel literal
// response is emitted...so callers see a structured value rather than
// an error").
const FallbackSentinel = "fallback_default"

// AssistantProvider is one upstream in the fallback chain used by
// enrichers (not core forecasting).
type AssistantProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// FallbackResult carries the text and which provider produced it.
type FallbackResult struct {
	Text   string
	Source string
}

// FallbackChain tries providers in declared order, first success
// short-circuits. Always terminates: when all upstreams fail, it
// returns a sentinel result instead of an error.
type FallbackChain struct {
	providers []AssistantProvider
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewFallbackChain builds a chain over providers in the configured
// order (primary, secondary, tertiary, ...).
func NewFallbackChain(providers []AssistantProvider, log *logger.Logger) *FallbackChain {
	return &FallbackChain{providers: providers, logger: log.WithField("component", "models.FallbackChain")}
}

// WithMetrics attaches a Metrics recorder for per-provider fallback
// outcomes; a no-op until this is called.
func (f *FallbackChain) WithMetrics(m *metrics.Metrics) *FallbackChain {
	f.metrics = m
	return f
}

// Complete tries each provider in order with a 20s timeout each,
// logging provider name and cause on failure (spec §4.4).
func (f *FallbackChain) Complete(ctx context.Context, prompt string) FallbackResult {
	for _, p := range f.providers {
		callCtx, cancel := context.WithTimeout(ctx, fallbackProviderTimeout)
		text, err := p.Complete(callCtx, prompt)
		cancel()

		if err == nil {
			if f.metrics != nil {
				f.metrics.RecordFallback(p.Name(), "success")
			}
			return FallbackResult{Text: text, Source: p.Name()}
		}

		if f.metrics != nil {
			f.metrics.RecordFallback(p.Name(), "failure")
		}
		f.logger.WithFields(map[string]interface{}{
			"provider": p.Name(),
			"error":    err.Error(),
		}).Warn("assistant fallback provider failed")
	}

	if f.metrics != nil {
		f.metrics.RecordFallback("chain", "exhausted")
	}
	return FallbackResult{Text: "", Source: FallbackSentinel}
}
