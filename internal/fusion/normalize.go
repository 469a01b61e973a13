package fusion

import (
	"fmt"

	"github.com/marketoracle/forecast/internal/contracts"
)

// NormalizeAll applies cross-outcome normalization across a fully
// fused outcome set, returning a copy with ModelOnlyProb rescaled where
// scaling applies and leaving the input slice untouched (spec §4.5: "let S = Σ ModelOnlyProb... scale each non-null
// ModelOnlyProb by 100/S"). Only mutually_exclusive families are ever
// rescaled; every other family is an explicit no-op that still reports
// a diagnostic, so a caller can tell "not normalized" apart from
// "normalization skipped by design". BlendedProb, already a convex
// combination with the market price, is left untouched either way.
func (e *Engine) NormalizeAll(family contracts.FamilyType, outcomes []contracts.FusedOutcome) ([]contracts.FusedOutcome, contracts.NormalizationInfo) {
	if family != contracts.FamilyMutuallyExclusive {
		return outcomes, contracts.NormalizationInfo{
			FamilyType: family,
			Normalized: false,
			Diagnostic: fmt.Sprintf("normalization skipped: family %q is not mutually_exclusive", family),
		}
	}

	present := make([]int, 0, len(outcomes))
	values := make([]float64, 0, len(outcomes))
	for i, o := range outcomes {
		if o.ModelOnlyProb != nil {
			present = append(present, i)
			values = append(values, *o.ModelOnlyProb)
		}
	}

	// Edge case: every outcome null. Nothing to scale; report so.
	if len(present) == 0 {
		return outcomes, contracts.NormalizationInfo{
			FamilyType: family,
			Normalized: false,
			Diagnostic: "normalization skipped: all outcomes null",
		}
	}

	// Edge case: exactly one non-null outcome in a mutually_exclusive
	// family is unambiguous — it must be the certain winner.
	if len(present) == 1 {
		full := 100.0
		out := make([]contracts.FusedOutcome, len(outcomes))
		copy(out, outcomes)
		out[present[0]].ModelOnlyProb = &full
		skipped := skipIndexes(len(outcomes), present)
		return out, contracts.NormalizationInfo{
			FamilyType:      family,
			TotalBefore:     values[0],
			TotalAfter:      &full,
			Normalized:      true,
			SkippedOutcomes: skipped,
			Diagnostic:      "single non-null outcome set to 100",
		}
	}

	total := pairwiseSum(values)

	// Edge case: sum is exactly zero. Scaling would divide by zero;
	// leave values untouched and surface the anomaly instead of
	// fabricating a uniform distribution the models never asserted.
	if total == 0 {
		skipped := skipIndexes(len(outcomes), present)
		return outcomes, contracts.NormalizationInfo{
			FamilyType:      family,
			TotalBefore:     0,
			Normalized:      false,
			SkippedOutcomes: skipped,
			Diagnostic:      "normalization skipped: sum of present outcomes is exactly zero",
		}
	}

	out := make([]contracts.FusedOutcome, len(outcomes))
	copy(out, outcomes)
	scale := 100.0 / total
	for _, i := range present {
		scaled := *out[i].ModelOnlyProb * scale
		out[i].ModelOnlyProb = &scaled
	}

	after := 100.0
	skipped := skipIndexes(len(outcomes), present)
	return out, contracts.NormalizationInfo{
		FamilyType:      family,
		TotalBefore:     total,
		TotalAfter:      &after,
		Normalized:      true,
		SkippedOutcomes: skipped,
		Diagnostic:      fmt.Sprintf("scaled %d outcome(s) from sum %.4f to 100", len(present), total),
	}
}

func skipIndexes(total int, present []int) []int {
	presentSet := make(map[int]bool, len(present))
	for _, i := range present {
		presentSet[i] = true
	}
	skipped := make([]int, 0, total-len(present))
	for i := 0; i < total; i++ {
		if !presentSet[i] {
			skipped = append(skipped, i)
		}
	}
	return skipped
}
