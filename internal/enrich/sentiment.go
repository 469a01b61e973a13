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

// WorldSentimentProvider scores an event's category against a
// world-sentiment index (geopolitical tension, market mood, and
// similar macro signals a forecasting prompt can cite), cached and
// rate limited the same way NewsProvider is.
type WorldSentimentProvider struct {
	endpoint string
	client   *httputil.Client
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	logger   *logger.Logger
}

// NewWorldSentimentProvider builds the world-sentiment sidecar.
// endpoint is a JSON API expected to accept {"category": "..."} and
// return {"temperature": <float>}.
func NewWorldSentimentProvider(endpoint string, client *httputil.Client, redisClient *redis.Client, log *logger.Logger) *WorldSentimentProvider {
	return &WorldSentimentProvider{
		endpoint: endpoint,
		client:   client,
		cache:    redis.NewCache(redisClient, "forecast:sentiment"),
		limiter:  redis.NewRateLimiter(redisClient, "forecast:sentiment"),
		logger:   log.WithField("component", "enrich.WorldSentimentProvider"),
	}
}

func (p *WorldSentimentProvider) Name() string { return "world_sentiment" }

type sentimentQueryRequest struct {
	Category string `json:"category"`
}

type sentimentQueryResponse struct {
	Temperature float64 `json:"temperature"`
}

var sentimentRateLimit = redis.RateLimitConfig{Key: "world_sentiment", Limit: 30, Window: time.Minute}

// Enrich fetches (or replays from cache) a world-sentiment score for
// event's category, bucketed at category granularity since sentiment
// moves slowly relative to any one event.
func (p *WorldSentimentProvider) Enrich(ctx context.Context, event *contracts.Event) (*contracts.EnrichmentContext, error) {
	cacheKey := "category:" + string(event.Category)

	var cached sentimentQueryResponse
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		temp := cached.Temperature
		return &contracts.EnrichmentContext{WorldTemperature: &temp}, nil
	}

	allowed, _, err := p.limiter.Allow(ctx, sentimentRateLimit)
	if err != nil {
		return nil, fmt.Errorf("sentiment rate limiter: %w", err)
	}
	if !allowed {
		p.logger.Debug("sentiment provider rate limited, skipping this request")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	resp, err := p.client.PostJSON(ctx, p.endpoint, sentimentQueryRequest{Category: string(event.Category)})
	if err != nil {
		return nil, fmt.Errorf("sentiment provider request: %w", err)
	}
	defer resp.Body.Close()

	var decoded sentimentQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode sentiment provider response: %w", err)
	}

	if err := p.cache.Set(ctx, cacheKey, decoded, redis.TTLLong); err != nil {
		p.logger.WithError(err).Warn("failed to cache world sentiment score")
	}

	temp := decoded.Temperature
	return &contracts.EnrichmentContext{WorldTemperature: &temp}, nil
}
