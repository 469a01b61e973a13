// Package market implements MarketGateway (C1): resolving an
// EventReference into a canonical Event via a cascading-source
// fallback, and the low-probability filter that follows resolution.
package market

import (
	"context"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/forecasterr"
	"github.com/marketoracle/forecast/pkg/logger"
)

// Gateway resolves event references by trying each configured
// MarketSource in order until one succeeds.
// ⭐ SSOT: cascading source fallback lives here only.
type Gateway struct {
	sources                 []contracts.MarketSource
	totalTimeout            time.Duration
	lowProbabilityThreshold float64
	logger                  *logger.Logger
}

// NewGateway builds a Gateway over sources in cascade order: structured
// API, secondary query API, HTML scrape (spec §4.1).
func NewGateway(sources []contracts.MarketSource, totalTimeout time.Duration, lowProbabilityThreshold float64, log *logger.Logger) *Gateway {
	return &Gateway{
		sources:                 sources,
		totalTimeout:            totalTimeout,
		lowProbabilityThreshold: lowProbabilityThreshold,
		logger:                  log.WithField("component", "market.Gateway"),
	}
}

// ResolveResult bundles the resolved event with the low-probability
// filter's verdict, which the coordinator uses to decide whether to
// short-circuit.
type ResolveResult struct {
	Event          *contracts.Event
	LowProbability bool
	MaxCandidate   float64
}

// Resolve runs the cascade: try each source within the overall
// deadline, in order, first success wins. On total failure it returns
// a ResolutionError; the caller (Pipeline Coordinator) decides whether
// to substitute a mock Event.
func (g *Gateway) Resolve(ctx context.Context, ref contracts.EventReference) (*ResolveResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.totalTimeout)
	defer cancel()

	var lastErr error
	attempted := make([]string, 0, len(g.sources))

	for _, src := range g.sources {
		attempted = append(attempted, src.Name())

		start := time.Now()
		event, err := src.Resolve(ctx, ref)
		elapsed := time.Since(start)

		if err != nil {
			g.logger.WithFields(map[string]interface{}{
				"source":  src.Name(),
				"elapsed": elapsed,
				"error":   err.Error(),
			}).Warn("market source failed, trying next")
			lastErr = err
			continue
		}

		g.logger.WithFields(map[string]interface{}{
			"source":   src.Name(),
			"elapsed":  elapsed,
			"outcomes": len(event.Outcomes),
		}).Info("market source resolved event")

		result := &ResolveResult{Event: event}
		g.applyLowProbabilityFilter(result)
		return result, nil
	}

	return nil, &forecasterr.ResolutionError{
		Reference: referenceString(ref),
		Attempts:  attempted,
		Cause:     lastErr,
	}
}

// MockEvent builds a degraded Event for when all sources fail and the
// caller has configured the coordinator to tolerate it. IsMock=true
// disables both the low-probability filter and trade-signal emission
// downstream (spec §4.1, §7).
func MockEvent(ref contracts.EventReference) *contracts.Event {
	return &contracts.Event{
		Question: referenceString(ref),
		Outcomes: []contracts.Outcome{
			{Name: "Yes", Active: true},
		},
		FamilyType: contracts.FamilyBinary,
		Category:   contracts.CategoryOther,
		IsMock:     true,
	}
}

// applyLowProbabilityFilter gathers candidates from Event.Outcomes'
// market probabilities (spec §4.1). A zero-only or absent candidate
// set never triggers the filter (invariant 9 of spec §8).
func (g *Gateway) applyLowProbabilityFilter(result *ResolveResult) {
	if result.Event.IsMock {
		return
	}

	max := 0.0
	any := false
	for _, o := range result.Event.Outcomes {
		if o.MarketProbability == nil {
			continue
		}
		v := *o.MarketProbability
		if v <= 0.0 || v > 100.0 {
			continue
		}
		any = true
		if v > max {
			max = v
		}
	}

	if !any {
		return
	}

	result.MaxCandidate = max
	if max < g.lowProbabilityThreshold {
		result.LowProbability = true
	}
}

func referenceString(ref contracts.EventReference) string {
	switch ref.Kind() {
	case "slug":
		return ref.Slug
	case "market_url":
		return ref.MarketURL
	default:
		return ref.FreeText
	}
}
