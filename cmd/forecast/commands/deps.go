package commands

import (
	"context"
	"fmt"

	"github.com/marketoracle/forecast/internal/classify"
	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/enrich"
	"github.com/marketoracle/forecast/internal/fusion"
	"github.com/marketoracle/forecast/internal/market"
	"github.com/marketoracle/forecast/internal/models"
	"github.com/marketoracle/forecast/internal/pipeline"
	"github.com/marketoracle/forecast/internal/prompt"
	"github.com/marketoracle/forecast/internal/signal"
	"github.com/marketoracle/forecast/internal/store"
	"github.com/marketoracle/forecast/pkg/config"
	"github.com/marketoracle/forecast/pkg/database"
	"github.com/marketoracle/forecast/pkg/httputil"
	"github.com/marketoracle/forecast/pkg/logger"
	"github.com/marketoracle/forecast/pkg/metrics"
	"github.com/marketoracle/forecast/pkg/redis"
)

// forecastDeps bundles everything a CLI subcommand needs to either run
// one pipeline invocation or serve it over HTTP/cron. Built once by
// initForecastDeps, the same sequencing the reference's own dependency
// wiring commands use: config -> logger -> clients -> stages -> Coordinator.
type forecastDeps struct {
	cfg         *config.Config
	log         *logger.Logger
	registry    *models.Registry
	coordinator *pipeline.Coordinator
	metrics     *metrics.Metrics
	db          *database.DB
	redisClient *redis.Client
}

// initForecastDeps wires config.Load() -> logger.New(cfg) -> the model
// registry, market gateway, classifier, composer, orchestrator, fusion
// engine, signal evaluator, enrichment sidecars, optional Postgres
// LogSink, and optional Prometheus metrics, into one pipeline
// Coordinator (spec §10.4).
func initForecastDeps() (*forecastDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	registryEntries := make([]contracts.ModelRegistryEntry, 0, len(cfg.Models))
	for _, mc := range cfg.Models {
		registryEntries = append(registryEntries, contracts.ModelRegistryEntry{
			ModelID:     mc.ID,
			DisplayName: mc.DisplayName,
			Endpoint:    mc.Endpoint,
			BaseWeight:  mc.BaseWeight,
			Enabled:     mc.Enabled,
			Fallback:    mc.Fallback,
		})
	}
	registry, err := models.NewRegistry(registryEntries)
	if err != nil {
		return nil, fmt.Errorf("build model registry: %w", err)
	}

	httpClient := httputil.New(cfg, log)

	gateway := market.NewGateway([]contracts.MarketSource{
		market.NewStructuredSource(cfg.MarketSources.StructuredBaseURL, httpClient, cfg.Timeouts.MarketSec, cfg.MarketSources.StructuredCallsPerSecond, log),
		market.NewSecondarySource(cfg.MarketSources.SecondaryBaseURL, httpClient, cfg.Timeouts.MarketSec, cfg.MarketSources.SecondaryCallsPerSecond, log),
		market.NewScrapeSource(cfg.MarketSources.ScrapeBaseURL, httpClient, cfg.Timeouts.MarketSec, cfg.MarketSources.ScrapeCallsPerSecond, log),
	}, cfg.Timeouts.MarketSec, cfg.LowProbabilityThreshold, log)

	classifier := classify.NewClassifier()

	composer := prompt.NewComposer()

	modelClient := models.NewHTTPModelClient(httpClient)
	orchestrator := models.NewOrchestrator(registry, modelClient, cfg.Timeouts.ModelCallSec, cfg.ConcurrencyLimits.ModelDispatchMax, log)
	if m != nil {
		orchestrator.WithMetrics(m)
	}

	fusionEngine := fusion.NewEngine(orchestrator, cfg.FusionParams.ConfidenceFactors, cfg.FusionParams.MarketBlendAlpha, fusion.NewCalibratorRegistry())

	sig := signal.NewEvaluator(signal.Params{
		EVBuyThreshold:  cfg.TradeParams.EVBuyThreshold,
		EVSellThreshold: cfg.TradeParams.EVSellThreshold,
		RiskThreshold:   cfg.TradeParams.RiskThreshold,
		RiskCeiling:     cfg.TradeParams.RiskCeiling,
	})

	var redisClient *redis.Client
	var enrichers []contracts.ContextProvider
	if cfg.EnrichmentToggles.News || cfg.EnrichmentToggles.WorldSentiment {
		redisClient, err = redis.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis for enrichment sidecars: %w", err)
		}
		if cfg.EnrichmentToggles.News {
			enrichers = append(enrichers, enrich.NewNewsProvider(cfg.EnrichmentEndpoints.News, httpClient, redisClient, log))
		}
		if cfg.EnrichmentToggles.WorldSentiment {
			enrichers = append(enrichers, enrich.NewWorldSentimentProvider(cfg.EnrichmentEndpoints.WorldSentiment, httpClient, redisClient, log))
		}
	}
	if cfg.EnrichmentToggles.Assistant {
		chain := buildFallbackChain(cfg, httpClient, m, log)
		enrichers = append(enrichers, enrich.NewAssistantProvider(chain, log))
	}

	var sink contracts.LogSink
	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		pgSink := store.NewPostgresLogSink(db, log)
		if err := pgSink.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("ensure predictions schema: %w", err)
		}
		sink = pgSink
	}

	modelIDs := registry.Enabled()

	coord := pipeline.NewCoordinator(gateway, classifier, composer, orchestrator, fusionEngine, sig, modelIDs, pipeline.Options{
		Enrichers:          enrichers,
		Sink:               sink,
		OutcomeConcurrency: cfg.ConcurrencyLimits.OutcomeDispatchMax,
		Deadlines: pipeline.Deadlines{
			Total:       cfg.Timeouts.TotalSec,
			ModelCall:   cfg.Timeouts.ModelCallSec,
			BatchFactor: 2,
		},
	}, log)
	if m != nil {
		coord.WithMetrics(m)
	}

	return &forecastDeps{
		cfg:         cfg,
		log:         log,
		registry:    registry,
		coordinator: coord,
		metrics:     m,
		db:          db,
		redisClient: redisClient,
	}, nil
}

// buildFallbackChain constructs the assistant fallback chain (spec
// §4.4, §11.7) from cfg.AssistantFallbackChain/AssistantProviders.
// Separate from initForecastDeps because only the assistant enrichment
// sidecar uses it; the core pipeline never calls assistant models.
func buildFallbackChain(cfg *config.Config, httpClient *httputil.Client, m *metrics.Metrics, log *logger.Logger) *models.FallbackChain {
	providers := make([]models.AssistantProvider, 0, len(cfg.AssistantFallbackChain))
	for _, name := range cfg.AssistantFallbackChain {
		pc, ok := cfg.AssistantProviders[name]
		if !ok {
			continue
		}
		providers = append(providers, models.NewHTTPAssistantProvider(name, pc.Endpoint, pc.Model, httpClient))
	}
	chain := models.NewFallbackChain(providers, log)
	if m != nil {
		chain.WithMetrics(m)
	}
	return chain
}

func (d *forecastDeps) close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
}
