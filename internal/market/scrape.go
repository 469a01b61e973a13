package market

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/httputil"
	"github.com/marketoracle/forecast/pkg/logger"
)

// priceRegex is the last-resort extractor when the page's markup
// doesn't match the expected selectors (a redesign, A/B test, or a
// captcha wall) — the same JSON-then-regex fallback shape the naver
// price client uses, one layer further down the cascade.
var priceRegex = regexp.MustCompile(`(?i)"outcome"\s*:\s*"([^"]+)"\s*,\s*"price"\s*:\s*([0-9.]+)`)

// ScrapeSource is the last-resort MarketSource: an HTML scrape of the
// public market page via goquery, falling back to a regex scan of the
// raw document when the expected DOM structure isn't present.
type ScrapeSource struct {
	baseURL string
	client  *httputil.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewScrapeSource builds the HTML-scrape fallback source, rate
// limited to callsPerSecond outbound requests (0 selects a default).
func NewScrapeSource(baseURL string, client *httputil.Client, timeout time.Duration, callsPerSecond float64, log *logger.Logger) *ScrapeSource {
	return &ScrapeSource{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		limiter: newSourceLimiter(callsPerSecond, 1),
		logger:  log.WithField("source", "html_scrape"),
	}
}

func (s *ScrapeSource) Name() string { return "html_scrape" }

func (s *ScrapeSource) Resolve(ctx context.Context, ref contracts.EventReference) (*contracts.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := waitLimiter(ctx, s.limiter); err != nil {
		return nil, fmt.Errorf("scrape source rate limit wait: %w", err)
	}

	slug := slugFor(ref)
	reqURL := fmt.Sprintf("%s/event/%s", s.baseURL, slug)

	resp, err := s.client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("scrape source request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scrape source returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse market page: %w", err)
	}

	question := strings.TrimSpace(doc.Find("h1[data-testid='market-question']").First().Text())

	outcomes := make([]contracts.Outcome, 0, 4)
	seen := make(map[string]bool)
	doc.Find("[data-testid='outcome-row']").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("[data-testid='outcome-name']").First().Text())
		priceText := strings.TrimSpace(sel.Find("[data-testid='outcome-price']").First().Text())
		if name == "" || seen[name] {
			return
		}
		price, ok := parsePercentText(priceText)
		if !ok || price <= 0 || price >= 100 {
			return
		}
		seen[name] = true
		outcomes = append(outcomes, contracts.Outcome{Name: name, MarketProbability: &price, Active: true})
	})

	if question == "" || len(outcomes) == 0 {
		s.logger.Debug("DOM selectors did not match, falling back to regex scan")
		question, outcomes = s.regexFallback(doc.Text(), question, outcomes)
	}

	if question == "" || len(outcomes) == 0 {
		return nil, fmt.Errorf("scrape source found no usable data for slug %q", slug)
	}

	return &contracts.Event{
		Question: question,
		MarketSlug: slug,
		Outcomes: outcomes,
	}, nil
}

// regexFallback scans raw page text for an embedded JSON-ish blob of
// outcome/price pairs when the expected DOM nodes are absent.
func (s *ScrapeSource) regexFallback(pageText, question string, outcomes []contracts.Outcome) (string, []contracts.Outcome) {
	matches := priceRegex.FindAllStringSubmatch(pageText, -1)
	if len(matches) == 0 {
		return question, outcomes
	}

	seen := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		seen[o.Name] = true
	}

	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if seen[name] {
			continue
		}
		price, err := strconv.ParseFloat(m[2], 64)
		if err != nil || price <= 0 {
			continue
		}
		if price <= 1 {
			price *= 100
		}
		if price >= 100 {
			continue
		}
		seen[name] = true
		p := price
		outcomes = append(outcomes, contracts.Outcome{Name: name, MarketProbability: &p, Active: true})
	}

	return question, outcomes
}

func parsePercentText(text string) (float64, bool) {
	text = strings.TrimSuffix(strings.TrimSpace(text), "%")
	text = strings.TrimPrefix(text, "$")
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	if v <= 1 {
		v *= 100
	}
	return v, true
}
