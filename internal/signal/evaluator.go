// Package signal implements TradeSignalEvaluator (C6): expected
// value, annualized EV, risk factor, and BUY/HOLD/SELL classification
// for a single fused outcome.
package signal

import (
	"fmt"
	"math"

	"github.com/marketoracle/forecast/internal/contracts"
)

// Params holds the tunable thresholds (spec §4.6), sourced from
// config.TradeParams at startup.
type Params struct {
	EVBuyThreshold  float64 // ε_buy, default 2.0
	EVSellThreshold float64 // ε_sell, default 2.0
	RiskThreshold   float64 // θ_risk, default 0.6
	RiskCeiling     float64 // default 0.9
}

// DefaultParams returns spec §4.6's default thresholds.
func DefaultParams() Params {
	return Params{
		EVBuyThreshold:  2.0,
		EVSellThreshold: 2.0,
		RiskThreshold:   0.6,
		RiskCeiling:     0.9,
	}
}

// Evaluator is the C6 TradeSignalEvaluator implementation.
type Evaluator struct {
	params Params
}

// NewEvaluator builds an Evaluator with the given thresholds.
func NewEvaluator(params Params) *Evaluator {
	return &Evaluator{params: params}
}

// Evaluate computes a TradeSignal for one outcome. It returns nil
// whenever any required input is null, matching spec §4.6's "returns
// null, no signal emitted" rule rather than fabricating a HOLD.
func (e *Evaluator) Evaluate(outcomeName string, modelOnlyProb, marketProb *float64, daysToResolution *float64, uncertainty float64) *contracts.TradeSignal {
	if modelOnlyProb == nil || marketProb == nil || daysToResolution == nil {
		return nil
	}

	days := math.Max(*daysToResolution, 1)
	ev := *modelOnlyProb - *marketProb
	annualizedEV := ev * (365 / days)
	riskFactor := clamp(uncertainty/10+math.Min(*daysToResolution, 365)/730, 0, 1)

	var sig contracts.Signal
	var reason string

	switch {
	case ev < -e.params.EVSellThreshold || riskFactor >= e.params.RiskCeiling:
		sig = contracts.SignalSell
		reason = sellReason(ev, riskFactor, e.params)
	case ev > e.params.EVBuyThreshold && riskFactor < e.params.RiskThreshold:
		sig = contracts.SignalBuy
		reason = fmt.Sprintf("Positive EV (+%.2f) with low risk (%.2f)", ev, riskFactor)
	default:
		sig = contracts.SignalHold
		reason = fmt.Sprintf("EV (%.2f) and risk (%.2f) do not clear BUY/SELL thresholds", ev, riskFactor)
	}

	return &contracts.TradeSignal{
		Signal:       sig,
		EV:           ev,
		AnnualizedEV: annualizedEV,
		RiskFactor:   riskFactor,
		Reason:       reason,
		OutcomeName:  outcomeName,
	}
}

func sellReason(ev, riskFactor float64, p Params) string {
	if riskFactor >= p.RiskCeiling {
		return fmt.Sprintf("Risk ceiling breached (%.2f >= %.2f)", riskFactor, p.RiskCeiling)
	}
	return fmt.Sprintf("Negative EV (%.2f) below sell threshold", ev)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SelectOutcome picks which fused outcome the coordinator should
// evaluate: the sole outcome for single-outcome events, or the outcome
// with the largest |EV| across outcomes (spec §4.7 step 5). EVs here
// are computed against marketProb supplied per-outcome by the caller.
func SelectOutcome(outcomes []contracts.FusedOutcome, marketProbs []*float64) int {
	if len(outcomes) == 1 {
		return 0
	}

	best := -1
	bestAbsEV := -1.0
	for i, o := range outcomes {
		if o.ModelOnlyProb == nil || i >= len(marketProbs) || marketProbs[i] == nil {
			continue
		}
		ev := math.Abs(*o.ModelOnlyProb - *marketProbs[i])
		if ev > bestAbsEV {
			bestAbsEV = ev
			best = i
		}
	}
	return best
}
