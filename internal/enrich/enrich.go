// Package enrich implements the optional ContextProvider sidecars
// named in spec §9: a news-summary provider and a world-sentiment
// provider. Each owns its own rate limiter and cache, built on
// pkg/redis's Lua sliding-window limiter and JSON cache helper, so
// "rate limiting and caches become actor-owned resources... the core
// never observes them." EnrichmentToggles in Config gate each
// sidecar; with every toggle false the core's call graph never
// touches Redis, matching pkg/redis/client.go's own enabled no-op
// pattern.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/httputil"
	"github.com/marketoracle/forecast/pkg/logger"
	"github.com/marketoracle/forecast/pkg/redis"
)

// fetchTimeout bounds one round trip to a sidecar's upstream; sidecars
// are best-effort, so a slow upstream must never stall the pipeline.
const fetchTimeout = 8 * time.Second

// NewsProvider summarizes recent news coverage for an event's
// question via an upstream summarization endpoint, cached for
// TTLMedium and rate limited per spec §11.6.
type NewsProvider struct {
	endpoint string
	client   *httputil.Client
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	logger   *logger.Logger
}

// NewNewsProvider builds the news-summary sidecar. endpoint is a JSON
// API expected to accept {"query": "..."} and return {"summary": "..."}.
func NewNewsProvider(endpoint string, client *httputil.Client, redisClient *redis.Client, log *logger.Logger) *NewsProvider {
	return &NewsProvider{
		endpoint: endpoint,
		client:   client,
		cache:    redis.NewCache(redisClient, "forecast:news"),
		limiter:  redis.NewRateLimiter(redisClient, "forecast:news"),
		logger:   log.WithField("component", "enrich.NewsProvider"),
	}
}

func (p *NewsProvider) Name() string { return "news_summary" }

type newsQueryRequest struct {
	Query string `json:"query"`
}

type newsQueryResponse struct {
	Summary string `json:"summary"`
}

var newsRateLimit = redis.RateLimitConfig{Key: "news_summary", Limit: 30, Window: time.Minute}

// Enrich fetches (or replays from cache) a news summary for event's
// question. Returns a nil EnrichmentContext, no error, on a cache
// miss blocked by the rate limiter — the caller treats that exactly
// like "nothing to add" (spec §9 best-effort semantics).
func (p *NewsProvider) Enrich(ctx context.Context, event *contracts.Event) (*contracts.EnrichmentContext, error) {
	cacheKey := "summary:" + event.MarketSlug
	if cacheKey == "summary:" {
		cacheKey = "summary:freetext:" + event.Question
	}

	var cached newsQueryResponse
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		summary := cached.Summary
		return &contracts.EnrichmentContext{NewsSummary: &summary}, nil
	}

	allowed, _, err := p.limiter.Allow(ctx, newsRateLimit)
	if err != nil {
		return nil, fmt.Errorf("news rate limiter: %w", err)
	}
	if !allowed {
		p.logger.Debug("news provider rate limited, skipping this request")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	resp, err := p.client.PostJSON(ctx, p.endpoint, newsQueryRequest{Query: event.Question})
	if err != nil {
		return nil, fmt.Errorf("news provider request: %w", err)
	}
	defer resp.Body.Close()

	var decoded newsQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode news provider response: %w", err)
	}
	if decoded.Summary == "" {
		return nil, nil
	}

	if err := p.cache.Set(ctx, cacheKey, decoded, redis.TTLMedium); err != nil {
		p.logger.WithError(err).Warn("failed to cache news summary")
	}

	summary := decoded.Summary
	return &contracts.EnrichmentContext{NewsSummary: &summary}, nil
}
