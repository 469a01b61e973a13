package market

import "time"

// gammaEvent mirrors the structured-API wire shape for a prediction
// market "event group" — a parent question with one or more child
// markets. Field names follow the JSON the upstream gateway actually
// returns (camelCase on the wire, decoded into exported Go fields).
type gammaEvent struct {
	Slug           string        `json:"slug"`
	ID             string        `json:"id"`
	Question       string        `json:"question"`
	Description    string        `json:"description"`
	EndDate        string        `json:"endDate"`
	Markets        []gammaMarket `json:"markets"`
	Active         bool          `json:"active"`
}

type gammaMarket struct {
	Question    string  `json:"question"`
	OutcomeName string  `json:"groupItemTitle"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
	LastPrice   float64 `json:"lastTradePrice"`
}

// secondaryQueryResult mirrors the lighter-weight secondary query API
// used as the second cascade step — one market, not an event group.
type secondaryQueryResult struct {
	Question       string             `json:"question"`
	Rules          string             `json:"rules"`
	Slug           string             `json:"slug"`
	MarketID       string             `json:"marketId"`
	ResolutionDate string             `json:"resolutionDate"`
	Outcomes       []secondaryOutcome `json:"outcomes"`
}

type secondaryOutcome struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Active      bool    `json:"active"`
}

func parseResolutionDate(layout, value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	return &t
}

func daysUntil(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	d := time.Until(*t).Hours() / 24
	if d < 0 {
		d = 0
	}
	return &d
}
