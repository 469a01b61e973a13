package contracts

// Stage identifies one step of the seven-component forecasting
// pipeline (SSOT — all logs, diagnostics, and Prediction.CompletedStages
// entries use these constants).
//
// Pipeline flow:
//
//	C1 -> C2 -> C3 -> C4 -> C5 -> C6 -> C7
//	Market  Classify  Prompt  Orchestrate  Fuse  Signal  Coordinate
type Stage string

const (
	// StageMarket C1: resolve an EventReference into a canonical Event.
	StageMarket Stage = "C1_MARKET_GATEWAY"

	// StageClassify C2: assign category, family type, and dimensions.
	StageClassify Stage = "C2_EVENT_CLASSIFIER"

	// StagePrompt C3: compose per-model, per-outcome prompts.
	StagePrompt Stage = "C3_PROMPT_COMPOSER"

	// StageOrchestrate C4: dispatch prompts to the model pool.
	StageOrchestrate Stage = "C4_MODEL_ORCHESTRATOR"

	// StageFuse C5: weighted aggregation and cross-outcome normalization.
	StageFuse Stage = "C5_FUSION_ENGINE"

	// StageSignal C6: compute the trade signal for the selected outcome.
	StageSignal Stage = "C6_TRADE_SIGNAL_EVALUATOR"

	// StageCoordinate C7: overall sequencing and the final envelope.
	StageCoordinate Stage = "C7_PIPELINE_COORDINATOR"
)

// String returns the stage identifier.
func (s Stage) String() string {
	return string(s)
}

// ShortName returns the abbreviated component name (e.g. "C1", "C4").
func (s Stage) ShortName() string {
	switch s {
	case StageMarket:
		return "C1"
	case StageClassify:
		return "C2"
	case StagePrompt:
		return "C3"
	case StageOrchestrate:
		return "C4"
	case StageFuse:
		return "C5"
	case StageSignal:
		return "C6"
	case StageCoordinate:
		return "C7"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human-readable summary of the stage's job.
func (s Stage) Description() string {
	switch s {
	case StageMarket:
		return "resolve event reference into market data"
	case StageClassify:
		return "classify category, family type, and dimensions"
	case StagePrompt:
		return "compose per-model prompts"
	case StageOrchestrate:
		return "dispatch prompts to the model pool"
	case StageFuse:
		return "weighted fusion and cross-outcome normalization"
	case StageSignal:
		return "compute trade signal"
	case StageCoordinate:
		return "sequence the pipeline and assemble the result"
	default:
		return "unknown stage"
	}
}

// AllStages returns every stage in pipeline order.
func AllStages() []Stage {
	return []Stage{
		StageMarket,
		StageClassify,
		StagePrompt,
		StageOrchestrate,
		StageFuse,
		StageSignal,
		StageCoordinate,
	}
}

// IsValidStage checks if a stage string names a known stage.
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
