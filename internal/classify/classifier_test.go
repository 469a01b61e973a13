package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketoracle/forecast/internal/contracts"
)

func prob(v float64) *float64 { return &v }

func TestClassify_BinarySingleOutcome(t *testing.T) {
	event := &contracts.Event{
		Question: "Will the bill pass?",
		Outcomes: []contracts.Outcome{
			{Name: "Yes", MarketProbability: prob(62), Active: true},
		},
	}

	_, err := NewClassifier().Classify(event, []string{"gpt-4o-mini", "claude-sonnet"})
	require.NoError(t, err)
	assert.Equal(t, contracts.FamilyBinary, event.FamilyType)
	assert.Equal(t, "single-or-complementary-outcome", event.Classification.WinningRule)
}

func TestClassify_ConditionalDateSeries(t *testing.T) {
	event := &contracts.Event{
		Question: "When will the merger close?",
		Outcomes: []contracts.Outcome{
			{Name: "by Oct 30", MarketProbability: prob(10), Active: true},
			{Name: "by Nov 15", MarketProbability: prob(35), Active: true},
			{Name: "by Dec 1", MarketProbability: prob(60), Active: true},
		},
	}

	_, err := NewClassifier().Classify(event, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, contracts.FamilyConditional, event.FamilyType)
}

func TestClassify_MutuallyExclusiveCandidates(t *testing.T) {
	event := &contracts.Event{
		Question: "Who will win the nomination?",
		Outcomes: []contracts.Outcome{
			{Name: "Candidate A", MarketProbability: prob(50), Active: true},
			{Name: "Candidate B", MarketProbability: prob(30), Active: true},
			{Name: "Candidate C", MarketProbability: prob(25), Active: true},
		},
	}

	_, err := NewClassifier().Classify(event, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, contracts.FamilyMutuallyExclusive, event.FamilyType)
}

func TestClassify_HybridFallback(t *testing.T) {
	event := &contracts.Event{
		Question: "Miscellaneous multi-part resolution",
		Outcomes: []contracts.Outcome{
			{Name: "Outcome one", Active: true},
			{Name: "Outcome two", Active: true},
			{Name: "Outcome three", Active: true},
		},
	}

	_, err := NewClassifier().Classify(event, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, contracts.FamilyHybrid, event.FamilyType)
}

func TestAssignDimensions_DeterministicByLexicographicOrder(t *testing.T) {
	a := assignDimensions([]string{"zeta", "alpha", "mid"})
	b := assignDimensions([]string{"mid", "zeta", "alpha"})
	assert.Equal(t, a, b)
	assert.Equal(t, contracts.DimensionStatisticalBaseRate, a["alpha"])
	assert.Equal(t, contracts.DimensionQualitativeRisk, a["mid"])
	assert.Equal(t, contracts.DimensionPatternMatch, a["zeta"])
}

func TestClassify_Category(t *testing.T) {
	event := &contracts.Event{
		Question: "Will the Fed cut interest rates in March?",
		Outcomes: []contracts.Outcome{{Name: "Yes", Active: true}},
	}
	_, err := NewClassifier().Classify(event, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryEconomy, event.Category)
}
