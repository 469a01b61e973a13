package contracts

import "time"

// FusedOutcome is the weighted-ensemble result for a single outcome
// (spec §3, produced by FusionEngine.Fuse).
type FusedOutcome struct {
	OutcomeName        string
	ModelOnlyProb       *float64
	BlendedProb         *float64
	Uncertainty         float64
	ModelCount          int
	Disagreement        float64
	Summary             string
	WeightSource        string
	CalibrationApplied  bool
}

// NormalizationInfo records the outcome of FusionEngine.NormalizeAll.
type NormalizationInfo struct {
	FamilyType      FamilyType
	TotalBefore     float64
	TotalAfter      *float64
	Normalized      bool
	SkippedOutcomes []int
	Diagnostic      string
}

// Signal is the TradeSignalEvaluator classification.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// TradeSignal is the C6 output for the outcome selected by the coordinator.
type TradeSignal struct {
	Signal        Signal
	EV            float64
	AnnualizedEV  float64
	RiskFactor    float64
	Reason        string
	OutcomeName   string
}

// Prediction is the final result envelope emitted by the pipeline
// coordinator (C7). It always carries enough diagnostic fields that a
// downstream formatter can explain absences (spec §7).
type Prediction struct {
	Event         Event
	Outcomes      []FusedOutcome
	Normalization NormalizationInfo
	TradeSignal   *TradeSignal
	Timestamp     time.Time

	// Diagnostics
	CompletedStages []string
	TimedOut        bool
	LowProbability  bool
	Notices         []string
}
