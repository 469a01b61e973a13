package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketoracle/forecast/internal/contracts"
)

func TestExtractJSON_SurroundedByProse(t *testing.T) {
	text := `Sure, here's my analysis: {"probability": 72, "confidence": "high", "reasoning": "strong momentum"} hope that helps!`
	obj, ok := extractJSON(text)
	assert.True(t, ok)
	assert.Contains(t, obj, `"probability": 72`)
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	text := "```json\n{\"probability\": 55, \"confidence\": \"medium\", \"reasoning\": \"ok\"}\n```"
	obj, ok := extractJSON(text)
	assert.True(t, ok)
	assert.Contains(t, obj, `"probability": 55`)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, ok := extractJSON("no json here at all")
	assert.False(t, ok)
}

func TestParseModelResponse_ValidPercentage(t *testing.T) {
	resp := parseModelResponse("m1", `{"probability": 63.5, "confidence": "High", "reasoning": "x"}`)
	assert.NoError(t, resp.Error)
	assert.InDelta(t, 63.5, resp.Probability, 0.001)
	assert.Equal(t, contracts.ConfidenceHigh, resp.Confidence)
}

func TestParseModelResponse_FractionNormalizedToPercentage(t *testing.T) {
	resp := parseModelResponse("m1", `{"probability": 0.63, "confidence": "low", "reasoning": "x"}`)
	assert.NoError(t, resp.Error)
	assert.InDelta(t, 63.0, resp.Probability, 0.001)
}

func TestParseModelResponse_OutOfRangeRejected(t *testing.T) {
	resp := parseModelResponse("m1", `{"probability": 140, "confidence": "medium", "reasoning": "x"}`)
	assert.Error(t, resp.Error)
}

func TestParseModelResponse_UnknownConfidenceDefaultsMedium(t *testing.T) {
	resp := parseModelResponse("m1", `{"probability": 50, "confidence": "extremely-sure", "reasoning": "x"}`)
	assert.NoError(t, resp.Error)
	assert.Equal(t, contracts.ConfidenceMedium, resp.Confidence)
}

func TestParseModelResponse_MissingProbabilityRejected(t *testing.T) {
	resp := parseModelResponse("m1", `{"confidence": "medium", "reasoning": "x"}`)
	assert.Error(t, resp.Error)
}

func TestParseModelResponse_ReasoningTruncated(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "0123456789"
	}
	resp := parseModelResponse("m1", `{"probability": 50, "confidence": "medium", "reasoning": "`+long+`"}`)
	assert.NoError(t, resp.Error)
	assert.LessOrEqual(t, len(resp.Reasoning), reasoningCap)
}
