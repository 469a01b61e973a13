package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/httputil"
	"github.com/marketoracle/forecast/pkg/logger"
)

// StructuredSource is the primary MarketSource: a structured JSON API
// that returns an event group and its child markets in one call. It
// is grounded on the same client shape as the pack's gamma API client
// — base URL plus a retrying httputil.Client, timeout per call.
type StructuredSource struct {
	baseURL string
	client  *httputil.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewStructuredSource builds the primary structured-API source, rate
// limited to callsPerSecond outbound requests (0 selects a default).
func NewStructuredSource(baseURL string, client *httputil.Client, timeout time.Duration, callsPerSecond float64, log *logger.Logger) *StructuredSource {
	return &StructuredSource{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		limiter: newSourceLimiter(callsPerSecond, 1),
		logger:  log.WithField("source", "structured"),
	}
}

func (s *StructuredSource) Name() string { return "structured_api" }

// Resolve fetches the parent event group and filters child markets to
// those active, unresolved, unique by name, with finite prices in
// (0,1) exclusive of degenerate 0/1 closures (spec §4.1).
func (s *StructuredSource) Resolve(ctx context.Context, ref contracts.EventReference) (*contracts.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := waitLimiter(ctx, s.limiter); err != nil {
		return nil, fmt.Errorf("structured source rate limit wait: %w", err)
	}

	slug := slugFor(ref)
	reqURL := fmt.Sprintf("%s/events?slug=%s", s.baseURL, url.QueryEscape(slug))

	resp, err := s.client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("structured source request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("structured source returned status %d", resp.StatusCode)
	}

	var events []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode structured response: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no event found for slug %q", slug)
	}
	ge := events[0]

	outcomes := make([]contracts.Outcome, 0, len(ge.Markets))
	seen := make(map[string]bool, len(ge.Markets))
	for _, m := range ge.Markets {
		if !m.Active || m.Closed {
			continue
		}
		name := m.OutcomeName
		if name == "" {
			name = m.Question
		}
		if seen[name] {
			continue
		}
		price := m.LastPrice
		if price <= 0 || price >= 1 {
			continue
		}
		seen[name] = true
		pct := price * 100
		outcomes = append(outcomes, contracts.Outcome{
			Name:              name,
			MarketProbability: &pct,
			Active:            true,
		})
	}

	if len(outcomes) == 0 {
		return nil, fmt.Errorf("event %q had no eligible outcomes after filtering", slug)
	}

	resDate := parseResolutionDate(time.RFC3339, ge.EndDate)

	event := &contracts.Event{
		Question:         ge.Question,
		Rules:            ge.Description,
		MarketSlug:       ge.Slug,
		MarketID:         ge.ID,
		ResolutionDate:   resDate,
		DaysToResolution: daysUntil(resDate),
		Outcomes:         outcomes,
	}

	s.logger.WithFields(map[string]interface{}{
		"slug":     slug,
		"outcomes": len(outcomes),
	}).Debug("resolved event from structured source")

	return event, nil
}

func slugFor(ref contracts.EventReference) string {
	switch ref.Kind() {
	case "slug":
		return ref.Slug
	case "market_url":
		return lastPathSegment(ref.MarketURL)
	default:
		return ref.FreeText
	}
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := u.Path
	for len(path) > 0 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}
