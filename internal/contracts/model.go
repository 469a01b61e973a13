package contracts

import "time"

// Confidence is a model's self-reported certainty about its probability.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ModelResponse is one model's answer for one outcome.
type ModelResponse struct {
	ModelID    string
	Probability float64 // percent, [0,100]
	Confidence Confidence
	Reasoning  string // truncated to ~200 chars on ingestion
	Latency    time.Duration
	Error      error
}

// Valid reports whether this response can participate in fusion
// (spec §3: Error == nil and Probability is a finite real in [0,100]).
func (r ModelResponse) Valid() bool {
	if r.Error != nil {
		return false
	}
	if r.Probability < 0 || r.Probability > 100 {
		return false
	}
	return r.Probability == r.Probability // excludes NaN
}

// ModelRegistryEntry is one configured model (spec §4.4, §6).
type ModelRegistryEntry struct {
	ModelID     string
	DisplayName string
	Endpoint    string
	BaseWeight  float64
	Enabled     bool
	Fallback    string // optional ModelID, checked to exist at config load and listed with the model; the orchestrator does not substitute it for a disabled model
}
