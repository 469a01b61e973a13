package fusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/marketoracle/forecast/internal/contracts"
)

// WeightSource names where base weights come from, recorded on every
// FusedOutcome for audit (spec §4.5 step 9).
const WeightSource = "config"

// Engine is the C5 FusionEngine implementation.
type Engine struct {
	weights            WeightLookup
	confidenceFactors  map[contracts.Confidence]float64
	marketBlendAlpha   float64
	calibrators        *CalibratorRegistry
}

// WeightLookup is the dependency-injected interface the orchestrator
// exposes so the fusion engine never imports the orchestrator package
// directly, inverting the cyclic dependency spec §9 calls out.
type WeightLookup interface {
	GetWeight(modelID string) float64
}

// NewEngine builds a fusion Engine. confidenceFactors maps "low",
// "medium", "high" to their multipliers (defaults 0.5/1.0/1.5 per
// spec §4.5 if omitted).
func NewEngine(weights WeightLookup, confidenceFactors map[string]float64, marketBlendAlpha float64, calibrators *CalibratorRegistry) *Engine {
	factors := map[contracts.Confidence]float64{
		contracts.ConfidenceLow:    0.5,
		contracts.ConfidenceMedium: 1.0,
		contracts.ConfidenceHigh:   1.5,
	}
	for k, v := range confidenceFactors {
		switch contracts.Confidence(strings.ToLower(k)) {
		case contracts.ConfidenceLow:
			factors[contracts.ConfidenceLow] = v
		case contracts.ConfidenceMedium:
			factors[contracts.ConfidenceMedium] = v
		case contracts.ConfidenceHigh:
			factors[contracts.ConfidenceHigh] = v
		}
	}
	if calibrators == nil {
		calibrators = NewCalibratorRegistry()
	}
	return &Engine{
		weights:           weights,
		confidenceFactors: factors,
		marketBlendAlpha:  marketBlendAlpha,
		calibrators:       calibrators,
	}
}

// Fuse implements spec §4.5's nine-step per-outcome fusion.
func (e *Engine) Fuse(outcomeName string, responses map[string]contracts.ModelResponse, marketProb *float64, category contracts.Category) contracts.FusedOutcome {
	valid := make([]contracts.ModelResponse, 0, len(responses))
	for _, r := range responses {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	// Deterministic iteration order for reproducibility across runs.
	sort.Slice(valid, func(i, j int) bool { return valid[i].ModelID < valid[j].ModelID })

	if len(valid) == 0 {
		return contracts.FusedOutcome{
			OutcomeName:  outcomeName,
			ModelOnlyProb: nil,
			BlendedProb:   marketProb,
			Uncertainty:   0,
			ModelCount:    0,
			Disagreement:  0,
			Summary:       "no model predictions available",
			WeightSource:  WeightSource,
		}
	}

	pairs := make([]weightedValue, 0, len(valid))
	for _, r := range valid {
		w := e.weights.GetWeight(r.ModelID) * e.confidenceFactor(r.Confidence)
		if w <= 0 {
			// An invariant violation (non-positive weight) would be a
			// bug in configuration validation, not a runtime
			// possibility here: config.validate() already rejects
			// non-positive base weights, and confidenceFactor is
			// always > 0. Skip defensively rather than propagate NaN.
			continue
		}
		pairs = append(pairs, weightedValue{value: r.Probability, weight: w})
	}

	weightTotal, valueTotal := weightedSum(pairs)
	if weightTotal <= 0 {
		return contracts.FusedOutcome{
			OutcomeName:  outcomeName,
			ModelOnlyProb: nil,
			BlendedProb:   marketProb,
			Uncertainty:   0,
			ModelCount:    0,
			Disagreement:  0,
			Summary:       "no usable model weights",
			WeightSource:  WeightSource,
		}
	}

	modelOnly := clamp(valueTotal/weightTotal, 0, 100)

	uncertainty := weightedStdDev(pairs, modelOnly, weightTotal)
	disagreement := clamp(uncertainty/50, 0, 1)

	calibrated := e.calibrators.For(category)(modelOnly)
	calibrationApplied := calibrated != modelOnly

	blended := calibrated
	if marketProb != nil && !math.IsNaN(*marketProb) && !math.IsInf(*marketProb, 0) {
		alpha := e.marketBlendAlpha
		b := alpha*calibrated + (1-alpha)*(*marketProb)
		blended = b
	}

	summary := summarize(valid)

	modelOnlyOut := calibrated
	return contracts.FusedOutcome{
		OutcomeName:        outcomeName,
		ModelOnlyProb:       &modelOnlyOut,
		BlendedProb:         &blended,
		Uncertainty:         uncertainty,
		ModelCount:          len(valid),
		Disagreement:        disagreement,
		Summary:             summary,
		WeightSource:        WeightSource,
		CalibrationApplied:  calibrationApplied,
	}
}

func (e *Engine) confidenceFactor(c contracts.Confidence) float64 {
	if v, ok := e.confidenceFactors[c]; ok {
		return v
	}
	return e.confidenceFactors[contracts.ConfidenceMedium]
}

// weightedStdDev computes sqrt(sum(w_i*(p_i-mean)^2)/sum(w_i)) using
// pairwise summation (spec §4.5 step 4).
func weightedStdDev(pairs []weightedValue, mean float64, weightTotal float64) float64 {
	sq := make([]float64, len(pairs))
	for i, p := range pairs {
		d := p.value - mean
		sq[i] = p.weight * d * d
	}
	variance := pairwiseSum(sq) / weightTotal
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
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

// summarize picks the highest-confidence response's reasoning as the
// primary summary, appending at most one secondary insight that isn't
// near-duplicate of the primary (similarity threshold 0.9, spec §4.5
// step 8).
func summarize(valid []contracts.ModelResponse) string {
	best := valid[0]
	for _, r := range valid[1:] {
		if confidenceRank(r.Confidence) > confidenceRank(best.Confidence) {
			best = r
		}
	}

	if best.Reasoning == "" {
		return fmt.Sprintf("%d model(s) responded with no reasoning text", len(valid))
	}

	summary := best.Reasoning
	for _, r := range valid {
		if r.ModelID == best.ModelID || r.Reasoning == "" {
			continue
		}
		if textSimilarity(best.Reasoning, r.Reasoning) < 0.9 {
			summary = summary + " | " + r.Reasoning
			break
		}
	}
	return summary
}

func confidenceRank(c contracts.Confidence) int {
	switch c {
	case contracts.ConfidenceHigh:
		return 2
	case contracts.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// textSimilarity is a Jaccard index over lowercased word sets — cheap
// and good enough to suppress near-duplicate reasoning strings without
// pulling in an NLP dependency for one summary line.
func textSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
