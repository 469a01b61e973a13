package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/marketoracle/forecast/internal/contracts"
)

const reasoningCap = 200

// extractJSON scans text for the first balanced-brace object and
// returns its raw substring. Model output is free-form prose with an
// embedded JSON object (and often markdown code fences); this tolerant
// scanner is what lets the orchestrator parse it regardless of what
// surrounds it (spec §4.4, §6).
func extractJSON(text string) (string, bool) {
	text = stripCodeFences(text)

	depth := 0
	start := -1
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "```")
	if !strings.Contains(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) >= 2 {
		return parts[1]
	}
	return text
}

// parseModelResponse turns raw model text into a ModelResponse,
// rejecting on HTTP-level failure (handled by the caller before this
// is invoked), parse failure, or a missing/invalid probability
// (spec §4.4).
func parseModelResponse(modelID string, rawText string) contracts.ModelResponse {
	jsonText, ok := extractJSON(rawText)
	if !ok {
		return contracts.ModelResponse{ModelID: modelID, Error: fmt.Errorf("no JSON object found in model response")}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return contracts.ModelResponse{ModelID: modelID, Error: fmt.Errorf("invalid JSON in model response: %w", err)}
	}

	prob, ok := extractProbability(obj)
	if !ok {
		return contracts.ModelResponse{ModelID: modelID, Error: fmt.Errorf("missing or invalid probability field")}
	}

	return contracts.ModelResponse{
		ModelID:     modelID,
		Probability: prob,
		Confidence:  extractConfidence(obj),
		Reasoning:   truncateReasoning(extractString(obj, "reasoning", "rationale")),
	}
}

// extractProbability coerces a numeric or numeric-string probability,
// normalizing a [0,1] fraction to a percentage, and rejects anything
// outside [0,100] (spec §6's wire format rule).
func extractProbability(obj map[string]interface{}) (float64, bool) {
	raw, ok := obj["probability"]
	if !ok {
		return 0, false
	}

	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}

	if v > 1 && v <= 100 {
		// already a percentage
	} else if v >= 0 && v <= 1 {
		v *= 100
	}

	if v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// extractConfidence matches case-insensitively on the three labels;
// unknown or missing values default to medium (spec §6).
func extractConfidence(obj map[string]interface{}) contracts.Confidence {
	raw, _ := obj["confidence"].(string)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return contracts.ConfidenceLow
	case "high":
		return contracts.ConfidenceHigh
	case "medium":
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceMedium
	}
}

func extractString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			switch t := v.(type) {
			case string:
				return t
			case []interface{}:
				parts := make([]string, 0, len(t))
				for _, item := range t {
					if s, ok := item.(string); ok {
						parts = append(parts, s)
					}
				}
				if len(parts) > 0 {
					return strings.Join(parts, " ")
				}
			}
		}
	}
	return ""
}

func truncateReasoning(s string) string {
	if len(s) <= reasoningCap {
		return s
	}
	return s[:reasoningCap]
}
