package classify

import (
	"regexp"
	"strings"

	"github.com/marketoracle/forecast/internal/contracts"
)

// familyRule is one entry in the ordered heuristic table that decides
// FamilyType. Rules are tried in order; the first match wins. This
// externalizes the ambiguous mutually_exclusive/conditional boundary
// that spec §9 names as an open question — each rule records its own
// rationale so the winning rule can be surfaced on the Event for later
// tuning, instead of being buried in an if/else chain.
type familyRule struct {
	name      string
	rationale string
	matches   func(e *contracts.Event) bool
	family    contracts.FamilyType
}

var conditionalPattern = regexp.MustCompile(`(?i)\b(by|on|before)\s+[a-z0-9]`)
var datePattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b`)
var competingEntityPattern = regexp.MustCompile(`(?i)\b(who|which)\b`)

var familyRules = []familyRule{
	{
		name:      "single-or-complementary-outcome",
		rationale: "one outcome, or exactly two outcomes summing near 100, is a plain binary market",
		family:    contracts.FamilyBinary,
		matches: func(e *contracts.Event) bool {
			active := e.ActiveOutcomes()
			if len(active) == 1 {
				return true
			}
			if len(active) != 2 {
				return false
			}
			sum, any := sumMarketProbs(active)
			return any && sum >= 80 && sum <= 120
		},
	},
	{
		name:      "date-or-threshold-series",
		rationale: `outcome names containing "by X"/"on X"/"before X" or calendar-month dates can resolve independently, so normalization across them would be wrong`,
		family:    contracts.FamilyConditional,
		matches: func(e *contracts.Event) bool {
			for _, o := range e.ActiveOutcomes() {
				if conditionalPattern.MatchString(o.Name) || datePattern.MatchString(o.Name) {
					return true
				}
			}
			return false
		},
	},
	{
		name:      "explicit-independent-group-keys",
		rationale: "outcomes tagged with distinct DerivedGroupKey values represent independent resolution buckets",
		family:    contracts.FamilyConditional,
		matches: func(e *contracts.Event) bool {
			keys := make(map[string]bool)
			for _, o := range e.ActiveOutcomes() {
				if o.DerivedGroupKey != "" {
					keys[o.DerivedGroupKey] = true
				}
			}
			return len(keys) > 1
		},
	},
	{
		name:      "competing-candidates-near-100",
		rationale: `"who"/"which"-style questions over named competitors, or active-outcome probabilities summing near a single 100% resolution slot, indicate mutually exclusive outcomes`,
		family:    contracts.FamilyMutuallyExclusive,
		matches: func(e *contracts.Event) bool {
			active := e.ActiveOutcomes()
			if len(active) < 2 {
				return false
			}
			sum, any := sumMarketProbs(active)
			if competingEntityPattern.MatchString(e.Question) {
				return true
			}
			return any && sum >= 80 && sum <= 120
		},
	},
}

// hybridRule is applied when nothing else matches: spec §4.2 calls
// for a conservative default, treated like conditional for
// normalization purposes.
var hybridRule = familyRule{
	name:      "fallback-hybrid",
	rationale: "no heuristic matched; default to hybrid and skip normalization conservatively",
	family:    contracts.FamilyHybrid,
}

func sumMarketProbs(outcomes []contracts.Outcome) (float64, bool) {
	sum := 0.0
	any := false
	for _, o := range outcomes {
		if o.MarketProbability == nil {
			continue
		}
		sum += *o.MarketProbability
		any = true
	}
	return sum, any
}

func classifyFamily(e *contracts.Event) (contracts.FamilyType, contracts.ClassificationDiagnostics) {
	for _, rule := range familyRules {
		if rule.matches(e) {
			return rule.family, contracts.ClassificationDiagnostics{
				WinningRule: rule.name,
				Rationale:   rule.rationale,
			}
		}
	}
	return hybridRule.family, contracts.ClassificationDiagnostics{
		WinningRule: hybridRule.name,
		Rationale:   hybridRule.rationale,
	}
}

// categoryKeywords is a simple keyword table; categories are picked by
// first match against the question text, defaulting to "other".
var categoryKeywords = []struct {
	category contracts.Category
	words    []string
}{
	{contracts.CategoryPolitics, []string{"president", "election", "senate", "congress", "governor", "impeach"}},
	{contracts.CategoryGeopolitics, []string{"war", "invasion", "nato", "sanctions", "treaty", "ceasefire"}},
	{contracts.CategoryEconomy, []string{"inflation", "gdp", "recession", "rate cut", "fed", "unemployment"}},
	{contracts.CategoryTechnology, []string{"ai", "chip", "launch", "release", "software", "startup"}},
	{contracts.CategorySports, []string{"championship", "league", "tournament", "playoffs", "match", "cup"}},
	{contracts.CategoryEntertainment, []string{"movie", "album", "award", "box office", "celebrity", "show"}},
}

func classifyCategory(question string) contracts.Category {
	lower := strings.ToLower(question)
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.category
			}
		}
	}
	return contracts.CategoryOther
}
