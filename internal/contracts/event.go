package contracts

import "time"

// EventReference is opaque user input identifying a market event.
// ⭐ SSOT: reference parsing lives in internal/market only.
type EventReference struct {
	FreeText  string
	MarketURL string
	Slug      string
}

// Kind reports which variant of EventReference is populated.
func (r EventReference) Kind() string {
	switch {
	case r.Slug != "":
		return "slug"
	case r.MarketURL != "":
		return "market_url"
	default:
		return "free_text"
	}
}

// FamilyType classifies how an event's outcomes compete for resolution.
type FamilyType string

const (
	FamilyBinary            FamilyType = "binary"
	FamilyMutuallyExclusive FamilyType = "mutually_exclusive"
	FamilyConditional       FamilyType = "conditional"
	FamilyHybrid            FamilyType = "hybrid"
)

// Category classifies the subject-matter domain of an event.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryGeopolitics   Category = "geopolitics"
	CategoryEconomy       Category = "economy"
	CategoryTechnology    Category = "technology"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// Outcome is one resolvable branch of an Event.
type Outcome struct {
	Name              string
	MarketProbability *float64 // nil means unknown
	Active            bool
	DerivedGroupKey   string // optional; used for conditional date/bucket grouping
}

// EnrichmentContext carries optional sidecar-provided context.
type EnrichmentContext struct {
	WorldTemperature   *float64
	NewsSummary        *string
	AssistantNarrative *string
}

// ClassificationDiagnostics records which heuristic rule decided the
// FamilyType, so the Prediction envelope can surface it for tuning
// (spec §9's open question on the mutually_exclusive/conditional line).
type ClassificationDiagnostics struct {
	WinningRule string
	Rationale   string
}

// Event is the canonical resolved form of an EventReference.
type Event struct {
	Question         string
	Rules             string
	MarketSlug        string
	MarketID          string
	ResolutionDate    *time.Time
	DaysToResolution  *float64
	Outcomes          []Outcome
	FamilyType        FamilyType
	Category          Category
	EnrichmentContext *EnrichmentContext
	Classification    ClassificationDiagnostics

	// IsMock flags an event substituted by the coordinator after all
	// MarketSource variants failed (spec §4.1); downstream components
	// treat it identically except the low-probability filter is skipped
	// and no trade signal is emitted.
	IsMock bool
}

// IsMultiOption reports whether the event has more than one outcome.
func (e *Event) IsMultiOption() bool {
	return len(e.Outcomes) > 1
}

// ActiveOutcomes returns the outcomes still eligible to resolve.
func (e *Event) ActiveOutcomes() []Outcome {
	out := make([]Outcome, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if o.Active {
			out = append(out, o)
		}
	}
	return out
}

// ActiveOutcomeIndices returns, in the same order as ActiveOutcomes,
// each active outcome's index within Outcomes. Callers that need to
// address back into the full Outcomes slice (e.g. PromptComposer,
// which is keyed on an Outcomes index) must use these indices rather
// than the active-list position, since the two diverge whenever
// Outcomes contains any inactive entries.
func (e *Event) ActiveOutcomeIndices() []int {
	out := make([]int, 0, len(e.Outcomes))
	for i, o := range e.Outcomes {
		if o.Active {
			out = append(out, i)
		}
	}
	return out
}
