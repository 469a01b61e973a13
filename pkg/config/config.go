package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the forecasting service.
// ⭐ SSOT: all environment variables are read only here.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional PostgreSQL LogSink)
	Database DatabaseConfig

	// Redis (enrichment sidecars only; core path never touches it)
	Redis RedisConfig

	// Domain
	MarketSources           MarketSourcesConfig
	Models                  []ModelConfig
	FusionParams            FusionParams
	TradeParams             TradeParams
	Timeouts                TimeoutConfig
	LowProbabilityThreshold float64
	AssistantFallbackChain  []string
	AssistantProviders      map[string]AssistantProviderConfig
	EnrichmentToggles       EnrichmentToggles
	EnrichmentEndpoints     EnrichmentEndpoints
	ConcurrencyLimits       ConcurrencyLimits

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string

	// Scheduler (optional periodic re-forecasting of a watchlist)
	SchedulerEnabled   bool
	SchedulerCron      string
	SchedulerWatchlist []string
}

// MarketSourcesConfig holds the base URLs and per-source rate limits
// of the cascading MarketGateway sources (spec §4.1).
type MarketSourcesConfig struct {
	StructuredBaseURL  string
	SecondaryBaseURL   string
	ScrapeBaseURL      string
	StructuredCallsPerSecond float64
	SecondaryCallsPerSecond  float64
	ScrapeCallsPerSecond     float64
}

// ModelConfig describes one entry in the model registry (spec §6).
type ModelConfig struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Endpoint    string  `json:"endpoint"`
	BaseWeight  float64 `json:"baseWeight"`
	Enabled     bool    `json:"enabled"`
	Fallback    string  `json:"fallback,omitempty"`
}

// FusionParams configures FusionEngine (C5) blending and confidence weighting.
type FusionParams struct {
	MarketBlendAlpha  float64
	ConfidenceFactors map[string]float64
}

// TradeParams configures TradeSignalEvaluator (C6) thresholds.
type TradeParams struct {
	EVBuyThreshold  float64
	EVSellThreshold float64
	RiskThreshold   float64
	RiskCeiling     float64
}

// TimeoutConfig configures the layered deadlines of §5.
type TimeoutConfig struct {
	ModelCallSec time.Duration
	BatchSec     time.Duration // read from TIMEOUT_BATCH but not consulted; the batch deadline is always min(ModelCallSec*2, remaining)
	TotalSec     time.Duration
	MarketSec    time.Duration
}

// EnrichmentToggles gates optional ContextProvider sidecars (spec §9).
type EnrichmentToggles struct {
	News           bool
	WorldSentiment bool
	Assistant      bool
}

// EnrichmentEndpoints holds the upstream URLs for the enrichment
// sidecars, independent of the model pool's own endpoints.
type EnrichmentEndpoints struct {
	News           string
	WorldSentiment string
}

// AssistantProviderConfig describes one link in the assistant fallback
// chain (spec §4.4, §11.7): a wire endpoint and model name, keyed by
// the provider identifier used in AssistantFallbackChain.
type AssistantProviderConfig struct {
	Endpoint string
	Model    string
}

// ConcurrencyLimits configures the semaphore capacities of §5.
type ConcurrencyLimits struct {
	ModelDispatchMax int // C_max, default 5
	OutcomeDispatchMax int // O_max, default 3
}

// RedisConfig holds Redis configuration for enrichment rate limiting/caching.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration for the optional LogSink.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// defaultModels is used whenever MODELS_CONFIG is unset; it gives the
// service a usable pool out of the box without requiring an operator
// to hand-write JSON before the first run.
func defaultModels() []ModelConfig {
	return []ModelConfig{
		{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", Endpoint: getEnv("MODEL_ENDPOINT_GPT4O_MINI", "https://api.openai.com/v1/chat/completions"), BaseWeight: 1.0, Enabled: true},
		{ID: "claude-sonnet", DisplayName: "Claude Sonnet", Endpoint: getEnv("MODEL_ENDPOINT_CLAUDE", "https://api.anthropic.com/v1/messages"), BaseWeight: 1.2, Enabled: true},
		{ID: "deepseek-chat", DisplayName: "DeepSeek Chat", Endpoint: getEnv("MODEL_ENDPOINT_DEEPSEEK", "https://api.deepseek.com/v1/chat/completions"), BaseWeight: 0.9, Enabled: true, Fallback: "gpt-4o-mini"},
		{ID: "gemini-flash", DisplayName: "Gemini Flash", Endpoint: getEnv("MODEL_ENDPOINT_GEMINI", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"), BaseWeight: 0.8, Enabled: true},
	}
}

// Load reads configuration from environment variables.
// ⭐ SSOT: this is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	models, err := loadModels()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "forecast"),
			User:            getEnv("DB_USER", "forecast"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MarketSources: MarketSourcesConfig{
			StructuredBaseURL:        getEnv("MARKET_STRUCTURED_BASE_URL", "https://gamma-api.polymarket.com"),
			SecondaryBaseURL:         getEnv("MARKET_SECONDARY_BASE_URL", "https://clob.polymarket.com"),
			ScrapeBaseURL:            getEnv("MARKET_SCRAPE_BASE_URL", "https://polymarket.com"),
			StructuredCallsPerSecond: getEnvAsFloat("MARKET_STRUCTURED_RATE", 5.0),
			SecondaryCallsPerSecond:  getEnvAsFloat("MARKET_SECONDARY_RATE", 5.0),
			ScrapeCallsPerSecond:     getEnvAsFloat("MARKET_SCRAPE_RATE", 1.0),
		},

		Models: models,

		FusionParams: FusionParams{
			MarketBlendAlpha: getEnvAsFloat("FUSION_MARKET_BLEND_ALPHA", 0.8),
			ConfidenceFactors: map[string]float64{
				"low":    getEnvAsFloat("FUSION_CONFIDENCE_LOW", 0.5),
				"medium": getEnvAsFloat("FUSION_CONFIDENCE_MEDIUM", 1.0),
				"high":   getEnvAsFloat("FUSION_CONFIDENCE_HIGH", 1.5),
			},
		},

		TradeParams: TradeParams{
			EVBuyThreshold:  getEnvAsFloat("TRADE_EV_BUY_THRESHOLD", 2.0),
			EVSellThreshold: getEnvAsFloat("TRADE_EV_SELL_THRESHOLD", 2.0),
			RiskThreshold:   getEnvAsFloat("TRADE_RISK_THRESHOLD", 0.6),
			RiskCeiling:     getEnvAsFloat("TRADE_RISK_CEILING", 0.9),
		},

		Timeouts: TimeoutConfig{
			ModelCallSec: getEnvAsDuration("TIMEOUT_MODEL_CALL", "15s"),
			BatchSec:     getEnvAsDuration("TIMEOUT_BATCH", "0s"),
			TotalSec:     getEnvAsDuration("TIMEOUT_TOTAL", "120s"),
			MarketSec:    getEnvAsDuration("TIMEOUT_MARKET", "25s"),
		},

		LowProbabilityThreshold: getEnvAsFloat("LOW_PROBABILITY_THRESHOLD", 1.0),

		AssistantFallbackChain: getEnvAsList("ASSISTANT_FALLBACK_CHAIN", []string{"primary", "secondary", "tertiary"}),
		AssistantProviders:     loadAssistantProviders(),

		EnrichmentToggles: EnrichmentToggles{
			News:           getEnvAsBool("ENRICH_NEWS_ENABLED", false),
			WorldSentiment: getEnvAsBool("ENRICH_WORLD_SENTIMENT_ENABLED", false),
			Assistant:      getEnvAsBool("ENRICH_ASSISTANT_ENABLED", false),
		},

		EnrichmentEndpoints: EnrichmentEndpoints{
			News:           getEnv("ENRICH_NEWS_ENDPOINT", "https://news.internal/v1/summarize"),
			WorldSentiment: getEnv("ENRICH_WORLD_SENTIMENT_ENDPOINT", "https://sentiment.internal/v1/score"),
		},

		ConcurrencyLimits: ConcurrencyLimits{
			ModelDispatchMax:   getEnvAsInt("CONCURRENCY_MODEL_MAX", 5),
			OutcomeDispatchMax: getEnvAsInt("CONCURRENCY_OUTCOME_MAX", 3),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),

		SchedulerEnabled:   getEnvAsBool("SCHEDULER_ENABLED", false),
		SchedulerCron:      getEnv("SCHEDULER_CRON", "0 0 */1 * * *"),
		SchedulerWatchlist: getEnvAsList("SCHEDULER_WATCHLIST", []string{}),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadModels parses MODELS_CONFIG (a JSON array) when set, else falls
// back to defaultModels so the service is runnable without it.
func loadModels() ([]ModelConfig, error) {
	raw := os.Getenv("MODELS_CONFIG")
	if raw == "" {
		return defaultModels(), nil
	}

	var models []ModelConfig
	if err := json.Unmarshal([]byte(raw), &models); err != nil {
		return nil, fmt.Errorf("MODELS_CONFIG is not valid JSON: %w", err)
	}
	return models, nil
}

// loadAssistantProviders builds an endpoint/model entry for each
// default chain link; ASSISTANT_ENDPOINT_<NAME> and
// ASSISTANT_MODEL_<NAME> override a given provider's wire target.
func loadAssistantProviders() map[string]AssistantProviderConfig {
	defaults := map[string]AssistantProviderConfig{
		"primary":   {Endpoint: "https://api.openai.com/v1/chat/completions", Model: "gpt-4o-mini"},
		"secondary": {Endpoint: "https://api.anthropic.com/v1/messages", Model: "claude-3-5-haiku"},
		"tertiary":  {Endpoint: "https://api.deepseek.com/v1/chat/completions", Model: "deepseek-chat"},
	}
	for name, def := range defaults {
		upper := strings.ToUpper(name)
		defaults[name] = AssistantProviderConfig{
			Endpoint: getEnv("ASSISTANT_ENDPOINT_"+upper, def.Endpoint),
			Model:    getEnv("ASSISTANT_MODEL_"+upper, def.Model),
		}
	}
	return defaults
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}

	seen := make(map[string]bool, len(c.Models))
	anyEnabled := false
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("model entry missing id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if m.Enabled && m.BaseWeight <= 0 {
			return fmt.Errorf("model %q has non-positive base weight %v", m.ID, m.BaseWeight)
		}
		if m.Enabled {
			anyEnabled = true
		}
	}
	if !anyEnabled {
		return fmt.Errorf("no enabled models in registry")
	}
	for _, m := range c.Models {
		if m.Fallback != "" && !seen[m.Fallback] {
			return fmt.Errorf("model %q declares unknown fallback %q", m.ID, m.Fallback)
		}
	}

	if c.FusionParams.MarketBlendAlpha < 0 || c.FusionParams.MarketBlendAlpha > 1 {
		return fmt.Errorf("FUSION_MARKET_BLEND_ALPHA must be in [0,1]")
	}

	for _, provider := range c.AssistantFallbackChain {
		if strings.TrimSpace(provider) == "" {
			return fmt.Errorf("ASSISTANT_FALLBACK_CHAIN contains an empty provider identifier")
		}
		if _, ok := c.AssistantProviders[provider]; !ok {
			return fmt.Errorf("ASSISTANT_FALLBACK_CHAIN names unknown provider %q", provider)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
