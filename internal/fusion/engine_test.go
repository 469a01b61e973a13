package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketoracle/forecast/internal/contracts"
)

type fakeWeights struct {
	w map[string]float64
}

func (f fakeWeights) GetWeight(modelID string) float64 {
	if v, ok := f.w[modelID]; ok {
		return v
	}
	return 0
}

func ptr(v float64) *float64 { return &v }

func newTestEngine(w map[string]float64) *Engine {
	return NewEngine(fakeWeights{w: w}, nil, 0.8, nil)
}

func TestFuse_ModelOnlyProbWithinBounds(t *testing.T) {
	e := newTestEngine(map[string]float64{"a": 1, "b": 1})
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 90, Confidence: contracts.ConfidenceHigh},
		"b": {ModelID: "b", Probability: 10, Confidence: contracts.ConfidenceLow},
	}
	out := e.Fuse("yes", responses, nil, contracts.CategoryOther)
	require.NotNil(t, out.ModelOnlyProb)
	assert.GreaterOrEqual(t, *out.ModelOnlyProb, 0.0)
	assert.LessOrEqual(t, *out.ModelOnlyProb, 100.0)
	assert.Equal(t, 2, out.ModelCount)
}

func TestFuse_ZeroValidResponsesYieldsNilModelOnly(t *testing.T) {
	e := newTestEngine(map[string]float64{"a": 1})
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Error: assert.AnError},
	}
	out := e.Fuse("yes", responses, ptr(40), contracts.CategoryOther)
	assert.Nil(t, out.ModelOnlyProb)
	assert.Equal(t, 0, out.ModelCount)
	require.NotNil(t, out.BlendedProb)
	assert.InDelta(t, 40.0, *out.BlendedProb, 0.001)
}

func TestFuse_UncertaintyZeroOnExactAgreement(t *testing.T) {
	e := newTestEngine(map[string]float64{"a": 1, "b": 1})
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 55, Confidence: contracts.ConfidenceMedium},
		"b": {ModelID: "b", Probability: 55, Confidence: contracts.ConfidenceMedium},
	}
	out := e.Fuse("yes", responses, nil, contracts.CategoryOther)
	assert.InDelta(t, 0.0, out.Uncertainty, 1e-9)
	assert.InDelta(t, 0.0, out.Disagreement, 1e-9)
}

func TestFuse_HighConfidenceDominatesWeighting(t *testing.T) {
	e := newTestEngine(map[string]float64{"a": 1, "b": 1})
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 90, Confidence: contracts.ConfidenceHigh},
		"b": {ModelID: "b", Probability: 10, Confidence: contracts.ConfidenceLow},
	}
	out := e.Fuse("yes", responses, nil, contracts.CategoryOther)
	require.NotNil(t, out.ModelOnlyProb)
	// High-confidence model has 3x the weight of low-confidence, so the
	// blend should sit closer to 90 than to the unweighted midpoint 50.
	assert.Greater(t, *out.ModelOnlyProb, 50.0)
}

func TestFuse_PermutationInvariant(t *testing.T) {
	e := newTestEngine(map[string]float64{"a": 1, "b": 2, "c": 3})
	r1 := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 30, Confidence: contracts.ConfidenceMedium},
		"b": {ModelID: "b", Probability: 60, Confidence: contracts.ConfidenceHigh},
		"c": {ModelID: "c", Probability: 45, Confidence: contracts.ConfidenceLow},
	}
	out1 := e.Fuse("yes", r1, nil, contracts.CategoryOther)
	out2 := e.Fuse("yes", r1, nil, contracts.CategoryOther)
	require.NotNil(t, out1.ModelOnlyProb)
	require.NotNil(t, out2.ModelOnlyProb)
	assert.InDelta(t, *out1.ModelOnlyProb, *out2.ModelOnlyProb, 1e-9)
}

func TestFuse_ScaleInvariantInBaseWeights(t *testing.T) {
	base := newTestEngine(map[string]float64{"a": 1, "b": 1})
	scaled := newTestEngine(map[string]float64{"a": 10, "b": 10})
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 70, Confidence: contracts.ConfidenceMedium},
		"b": {ModelID: "b", Probability: 20, Confidence: contracts.ConfidenceMedium},
	}
	out1 := base.Fuse("yes", responses, nil, contracts.CategoryOther)
	out2 := scaled.Fuse("yes", responses, nil, contracts.CategoryOther)
	require.NotNil(t, out1.ModelOnlyProb)
	require.NotNil(t, out2.ModelOnlyProb)
	assert.InDelta(t, *out1.ModelOnlyProb, *out2.ModelOnlyProb, 1e-9)
}

func TestNormalizeAll_MutuallyExclusiveScalesToHundred(t *testing.T) {
	e := newTestEngine(nil)
	outcomes := []contracts.FusedOutcome{
		{OutcomeName: "a", ModelOnlyProb: ptr(30)},
		{OutcomeName: "b", ModelOnlyProb: ptr(50)},
		{OutcomeName: "c", ModelOnlyProb: ptr(40)},
	}
	out, info := e.NormalizeAll(contracts.FamilyMutuallyExclusive, outcomes)
	sum := 0.0
	for _, o := range out {
		require.NotNil(t, o.ModelOnlyProb)
		sum += *o.ModelOnlyProb
	}
	assert.InDelta(t, 100.0, sum, 1e-6)
	assert.True(t, info.Normalized)
}

func TestNormalizeAll_NonMutuallyExclusiveIsNoOp(t *testing.T) {
	e := newTestEngine(nil)
	outcomes := []contracts.FusedOutcome{
		{OutcomeName: "a", ModelOnlyProb: ptr(30)},
		{OutcomeName: "b", ModelOnlyProb: ptr(50)},
	}
	for _, family := range []contracts.FamilyType{contracts.FamilyBinary, contracts.FamilyConditional, contracts.FamilyHybrid} {
		out, info := e.NormalizeAll(family, outcomes)
		assert.False(t, info.Normalized)
		require.NotNil(t, out[0].ModelOnlyProb)
		require.NotNil(t, out[1].ModelOnlyProb)
		assert.InDelta(t, 30.0, *out[0].ModelOnlyProb, 1e-9)
		assert.InDelta(t, 50.0, *out[1].ModelOnlyProb, 1e-9)
	}
}

func TestNormalizeAll_AllNullSkipsNormalization(t *testing.T) {
	e := newTestEngine(nil)
	outcomes := []contracts.FusedOutcome{
		{OutcomeName: "a"},
		{OutcomeName: "b"},
	}
	out, info := e.NormalizeAll(contracts.FamilyMutuallyExclusive, outcomes)
	assert.False(t, info.Normalized)
	assert.Nil(t, out[0].ModelOnlyProb)
	assert.Nil(t, out[1].ModelOnlyProb)
}

func TestNormalizeAll_ExactlyOneNonNullSetTo100(t *testing.T) {
	e := newTestEngine(nil)
	outcomes := []contracts.FusedOutcome{
		{OutcomeName: "a", ModelOnlyProb: ptr(37)},
		{OutcomeName: "b"},
	}
	out, info := e.NormalizeAll(contracts.FamilyMutuallyExclusive, outcomes)
	require.NotNil(t, out[0].ModelOnlyProb)
	assert.InDelta(t, 100.0, *out[0].ModelOnlyProb, 1e-9)
	assert.Nil(t, out[1].ModelOnlyProb)
	assert.True(t, info.Normalized)
	assert.Contains(t, info.SkippedOutcomes, 1)
}

func TestNormalizeAll_SumExactlyZeroSkipsScaling(t *testing.T) {
	e := newTestEngine(nil)
	outcomes := []contracts.FusedOutcome{
		{OutcomeName: "a", ModelOnlyProb: ptr(0)},
		{OutcomeName: "b", ModelOnlyProb: ptr(0)},
	}
	out, info := e.NormalizeAll(contracts.FamilyMutuallyExclusive, outcomes)
	assert.False(t, info.Normalized)
	require.NotNil(t, out[0].ModelOnlyProb)
	assert.InDelta(t, 0.0, *out[0].ModelOnlyProb, 1e-9)
}

func TestFuse_CalibrationAppliedBeforeBlending(t *testing.T) {
	// Spec §8 S6: a calibrator f(x) = min(x*0.9, 100) applied to
	// ModelOnlyProb=80 yields 72, and CalibrationApplied is recorded.
	calibrators := NewCalibratorRegistry()
	calibrators.Register(contracts.CategoryEconomy, func(x float64) float64 {
		return math.Min(x*0.9, 100)
	})
	e := NewEngine(fakeWeights{w: map[string]float64{"a": 1, "b": 1}}, nil, 0.8, calibrators)
	responses := map[string]contracts.ModelResponse{
		"a": {ModelID: "a", Probability: 80, Confidence: contracts.ConfidenceMedium},
		"b": {ModelID: "b", Probability: 80, Confidence: contracts.ConfidenceMedium},
	}
	out := e.Fuse("yes", responses, ptr(50), contracts.CategoryEconomy)
	require.NotNil(t, out.ModelOnlyProb)
	assert.InDelta(t, 72.0, *out.ModelOnlyProb, 1e-9)
	assert.True(t, out.CalibrationApplied)
	require.NotNil(t, out.BlendedProb)
	assert.InDelta(t, 0.8*72.0+0.2*50.0, *out.BlendedProb, 1e-9)

	outOther := e.Fuse("yes", responses, ptr(50), contracts.CategoryOther)
	require.NotNil(t, outOther.ModelOnlyProb)
	assert.InDelta(t, 80.0, *outOther.ModelOnlyProb, 1e-9)
	assert.False(t, outOther.CalibrationApplied)
}

func TestPairwiseSum_MatchesNaiveForSmallInput(t *testing.T) {
	values := []float64{1.1, 2.2, 3.3, 4.4, 5.5}
	naive := 0.0
	for _, v := range values {
		naive += v
	}
	assert.InDelta(t, naive, pairwiseSum(values), 1e-9)
}
