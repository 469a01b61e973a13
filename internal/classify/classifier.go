// Package classify implements EventClassifier (C2): a pure function
// from a resolved Event to {Category, FamilyType, DimensionAssignments}.
package classify

import (
	"sort"

	"github.com/marketoracle/forecast/internal/contracts"
)

// Classifier is the C2 EventClassifier implementation.
type Classifier struct{}

// NewClassifier builds a Classifier. It holds no state: classification
// is a pure function of its inputs.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify assigns Category and FamilyType to event (mutating it in
// place, matching the rest of the pipeline's single-owner-per-stage
// convention) and returns the per-model dimension assignments.
func (c *Classifier) Classify(event *contracts.Event, modelIDs []string) (contracts.DimensionAssignments, error) {
	event.Category = classifyCategory(event.Question)
	family, diag := classifyFamily(event)
	event.FamilyType = family
	event.Classification = diag

	return assignDimensions(modelIDs), nil
}

// allDimensions is the fixed registry of analytic viewpoints models
// are assigned from (spec §4.2).
var allDimensions = []contracts.Dimension{
	contracts.DimensionStatisticalBaseRate,
	contracts.DimensionQualitativeRisk,
	contracts.DimensionPatternMatch,
	contracts.DimensionPolicyDomain,
	contracts.DimensionNarrativeContext,
}

// assignDimensions is deterministic given the model list: sort model
// IDs lexicographically and cycle through the dimension registry, so
// ties are always broken the same way (spec §4.2).
func assignDimensions(modelIDs []string) contracts.DimensionAssignments {
	sorted := make([]string, len(modelIDs))
	copy(sorted, modelIDs)
	sort.Strings(sorted)

	out := make(contracts.DimensionAssignments, len(sorted))
	for i, id := range sorted {
		out[id] = allDimensions[i%len(allDimensions)]
	}
	return out
}
