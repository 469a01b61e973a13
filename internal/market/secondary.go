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

// SecondarySource is the second cascade step: a lighter REST-by-slug
// lookup used when the structured event-group API fails or doesn't
// recognize the reference.
type SecondarySource struct {
	baseURL string
	client  *httputil.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewSecondarySource builds the secondary query-API source, rate
// limited to callsPerSecond outbound requests (0 selects a default).
func NewSecondarySource(baseURL string, client *httputil.Client, timeout time.Duration, callsPerSecond float64, log *logger.Logger) *SecondarySource {
	return &SecondarySource{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		limiter: newSourceLimiter(callsPerSecond, 1),
		logger:  log.WithField("source", "secondary_query"),
	}
}

func (s *SecondarySource) Name() string { return "secondary_query_api" }

func (s *SecondarySource) Resolve(ctx context.Context, ref contracts.EventReference) (*contracts.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := waitLimiter(ctx, s.limiter); err != nil {
		return nil, fmt.Errorf("secondary source rate limit wait: %w", err)
	}

	slug := slugFor(ref)
	reqURL := fmt.Sprintf("%s/markets/%s", s.baseURL, url.PathEscape(slug))

	resp, err := s.client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("secondary source request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("secondary source returned status %d", resp.StatusCode)
	}

	var q secondaryQueryResult
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("decode secondary response: %w", err)
	}
	if q.Question == "" {
		return nil, fmt.Errorf("secondary source returned no question for slug %q", slug)
	}

	outcomes := make([]contracts.Outcome, 0, len(q.Outcomes))
	seen := make(map[string]bool, len(q.Outcomes))
	for _, o := range q.Outcomes {
		if !o.Active || seen[o.Name] {
			continue
		}
		if o.Probability <= 0 || o.Probability >= 100 {
			continue
		}
		seen[o.Name] = true
		prob := o.Probability
		outcomes = append(outcomes, contracts.Outcome{
			Name:              o.Name,
			MarketProbability: &prob,
			Active:            true,
		})
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("secondary source had no eligible outcomes for slug %q", slug)
	}

	resDate := parseResolutionDate("2006-01-02", q.ResolutionDate)

	event := &contracts.Event{
		Question:         q.Question,
		Rules:            q.Rules,
		MarketSlug:       q.Slug,
		MarketID:         q.MarketID,
		ResolutionDate:   resDate,
		DaysToResolution: daysUntil(resDate),
		Outcomes:         outcomes,
	}

	s.logger.WithFields(map[string]interface{}{
		"slug":     slug,
		"outcomes": len(outcomes),
	}).Debug("resolved event from secondary source")

	return event, nil
}
