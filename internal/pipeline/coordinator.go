// Package pipeline implements the Pipeline Coordinator (C7): it
// sequences C1 through C6 under an overall deadline and assembles the
// final Prediction envelope. Grounded on the same stage-sequencing,
// never-throw-on-partial-failure shape as the reference orchestrator,
// generalized from a fixed seven-stage batch job to a single
// event-resolution request with per-outcome concurrency.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/market"
	"github.com/marketoracle/forecast/internal/signal"
	"github.com/marketoracle/forecast/pkg/logger"
	"github.com/marketoracle/forecast/pkg/metrics"
)

// Deadlines bundles the timeout budget the coordinator enforces at
// each stage (spec §4.7, §5).
type Deadlines struct {
	Total       time.Duration // D_total, default 120s
	ModelCall   time.Duration // T_model, default 15s
	BatchFactor int           // T_batch = min(BatchFactor*T_model, remaining), default 2
}

// DefaultDeadlines returns spec §5's defaults.
func DefaultDeadlines() Deadlines {
	return Deadlines{Total: 120 * time.Second, ModelCall: 15 * time.Second, BatchFactor: 2}
}

// Coordinator wires together one instance of every pipeline stage and
// runs a full reference-to-Prediction request.
type Coordinator struct {
	gateway    *market.Gateway
	classifier contracts.EventClassifier
	composer   contracts.PromptComposer
	orchestr   contracts.ModelOrchestrator
	fusion     contracts.FusionEngine
	signal     contracts.TradeSignalEvaluator
	enrichers  []contracts.ContextProvider
	sink       contracts.LogSink

	modelIDs          []string
	outcomeConcurrency int // O_max, default 3
	deadlines         Deadlines
	allowMockOnFailure bool
	onStage            func(contracts.Stage)

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// WithMetrics attaches a Metrics recorder for per-stage latency and
// completed-prediction counts; a no-op until this is called.
func (c *Coordinator) WithMetrics(m *metrics.Metrics) *Coordinator {
	c.metrics = m
	return c
}

// Options configures NewCoordinator's optional dependencies.
type Options struct {
	Enrichers          []contracts.ContextProvider
	Sink               contracts.LogSink
	OutcomeConcurrency int
	Deadlines          Deadlines
	AllowMockOnFailure bool
	// OnStage, if set, is called every time a stage completes, for
	// every request this Coordinator runs. The websocket streaming
	// handler uses the per-request WithStageHook instead.
	OnStage func(contracts.Stage)
}

// NewCoordinator builds a Coordinator over the required stage
// components and modelIDs (the enabled model pool, used to derive
// dimension assignments and prompts per outcome).
func NewCoordinator(
	gateway *market.Gateway,
	classifier contracts.EventClassifier,
	composer contracts.PromptComposer,
	orchestr contracts.ModelOrchestrator,
	fusion contracts.FusionEngine,
	sig contracts.TradeSignalEvaluator,
	modelIDs []string,
	opts Options,
	log *logger.Logger,
) *Coordinator {
	concurrency := opts.OutcomeConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	deadlines := opts.Deadlines
	if deadlines.Total <= 0 {
		deadlines = DefaultDeadlines()
	}
	return &Coordinator{
		gateway:            gateway,
		classifier:         classifier,
		composer:           composer,
		orchestr:           orchestr,
		fusion:             fusion,
		signal:             sig,
		enrichers:          opts.Enrichers,
		sink:               opts.Sink,
		modelIDs:           sortedModelIDs(modelIDs),
		outcomeConcurrency: concurrency,
		deadlines:          deadlines,
		allowMockOnFailure: opts.AllowMockOnFailure,
		onStage:            opts.OnStage,
		logger:             log.WithField("component", "pipeline.Coordinator"),
	}
}

// stageHookKey is the context key under which a per-request stage
// callback is stashed (the websocket streaming handler's hook into an
// otherwise shared Coordinator — see WithStageHook).
type stageHookKey struct{}

// WithStageHook attaches a per-request stage-completion callback to
// ctx. Unlike Options.OnStage (fixed at Coordinator construction and
// shared by every caller), this lets one Coordinator serve several
// concurrent requests that each want their own live stage feed.
func WithStageHook(ctx context.Context, hook func(contracts.Stage)) context.Context {
	return context.WithValue(ctx, stageHookKey{}, hook)
}

func stageHookFromContext(ctx context.Context) func(contracts.Stage) {
	hook, _ := ctx.Value(stageHookKey{}).(func(contracts.Stage))
	return hook
}

// emitStage records a completed stage and notifies onStage and any
// per-request context hook, if set.
func (c *Coordinator) emitStage(ctx context.Context, pred *contracts.Prediction, stage contracts.Stage) {
	pred.CompletedStages = append(pred.CompletedStages, stage.String())
	if c.onStage != nil {
		c.onStage(stage)
	}
	if hook := stageHookFromContext(ctx); hook != nil {
		hook(stage)
	}
}

// emitStageTimed is emitStage plus a stage-latency observation,
// measured from started.
func (c *Coordinator) emitStageTimed(ctx context.Context, pred *contracts.Prediction, stage contracts.Stage, started time.Time) {
	c.emitStage(ctx, pred, stage)
	if c.metrics != nil {
		c.metrics.ObserveStage(stage.ShortName(), time.Since(started))
	}
}

// recordOutcome tags the completed run's terminal condition, however
// early it exited, so /metrics can distinguish full runs from
// low-probability skips and timeouts.
func (c *Coordinator) recordOutcome(pred *contracts.Prediction) {
	if c.metrics == nil {
		return
	}
	switch {
	case pred.TimedOut:
		c.metrics.RecordPrediction("timed_out")
	case pred.LowProbability:
		c.metrics.RecordPrediction("low_probability")
	case pred.TradeSignal != nil:
		c.metrics.RecordPrediction(string(pred.TradeSignal.Signal))
	default:
		c.metrics.RecordPrediction("completed")
	}
}

// outcomeFusion is the per-outcome working state produced by stage 3.
// index addresses the position within the active-outcome slice
// (result bookkeeping); eventIdx addresses the same outcome's position
// in Event.Outcomes (what PromptComposer expects).
type outcomeFusion struct {
	index    int
	eventIdx int
	name     string
	fused    contracts.FusedOutcome
	err      error
}

// Run executes C1 through C6 for ref and returns the final Prediction.
// It never returns an error: every failure degrades the Prediction's
// diagnostic fields instead (spec §4.7 step 6).
func (c *Coordinator) Run(ctx context.Context, ref contracts.EventReference) *contracts.Prediction {
	runStart := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.deadlines.Total)
	defer cancel()

	pred := &contracts.Prediction{
		Timestamp:       time.Now(),
		CompletedStages: make([]string, 0, len(contracts.AllStages())),
		Notices:         make([]string, 0),
	}

	// --- C1: MarketGateway ---
	stageStart := time.Now()
	event, lowProb, err := c.resolveEvent(ctx, ref, pred)
	if event == nil {
		pred.TimedOut = ctx.Err() != nil
		c.recordOutcome(pred)
		return pred
	}
	pred.Event = *event
	pred.LowProbability = lowProb
	c.emitStageTimed(ctx, pred, contracts.StageMarket, stageStart)
	if err != nil {
		pred.Notices = append(pred.Notices, err.Error())
	}

	if lowProb {
		pred.Notices = append(pred.Notices, "event skipped: market probability below low-probability threshold")
		c.recordOutcome(pred)
		return pred
	}

	// --- C2: EventClassifier ---
	stageStart = time.Now()
	dims, err := c.classifier.Classify(event, c.modelIDs)
	if err != nil {
		pred.Notices = append(pred.Notices, fmt.Sprintf("classification failed: %v", err))
		pred.TimedOut = ctx.Err() != nil
		c.recordOutcome(pred)
		return pred
	}
	pred.Event = *event
	c.emitStageTimed(ctx, pred, contracts.StageClassify, stageStart)

	enrichCtx := c.enrich(ctx, event)
	event.EnrichmentContext = enrichCtx

	// --- C3/C4/C5 per outcome, O_max-bounded ---
	active := event.ActiveOutcomes()
	if len(active) == 0 {
		pred.Notices = append(pred.Notices, "event has no active outcomes")
		c.recordOutcome(pred)
		return pred
	}

	stageStart = time.Now()
	fusedResults := c.fuseAllOutcomes(ctx, event, active, dims)
	c.emitStage(ctx, pred, contracts.StagePrompt)
	c.emitStage(ctx, pred, contracts.StageOrchestrate)
	c.emitStageTimed(ctx, pred, contracts.StageFuse, stageStart)

	outcomes := make([]contracts.FusedOutcome, len(active))
	marketProbs := make([]*float64, len(active))
	for _, r := range fusedResults {
		outcomes[r.index] = r.fused
		marketProbs[r.index] = active[r.index].MarketProbability
		if r.err != nil {
			pred.Notices = append(pred.Notices, fmt.Sprintf("outcome %q: %v", r.name, r.err))
		}
	}

	// --- C5.NormalizeAll ---
	outcomes, normInfo := c.fusion.NormalizeAll(event.FamilyType, outcomes)
	pred.Normalization = normInfo
	pred.Outcomes = outcomes

	// --- C6: TradeSignalEvaluator ---
	stageStart = time.Now()
	selectedIdx := signal.SelectOutcome(outcomes, marketProbs)
	if selectedIdx >= 0 && !event.IsMock {
		selected := outcomes[selectedIdx]
		pred.TradeSignal = c.signal.Evaluate(selected.OutcomeName, selected.ModelOnlyProb, marketProbs[selectedIdx], event.DaysToResolution, selected.Uncertainty)
	}
	c.emitStageTimed(ctx, pred, contracts.StageSignal, stageStart)

	c.emitStageTimed(ctx, pred, contracts.StageCoordinate, runStart)
	pred.TimedOut = ctx.Err() != nil
	c.recordOutcome(pred)

	if c.sink != nil {
		if err := c.sink.Record(ctx, pred); err != nil {
			c.logger.WithError(err).Warn("log sink record failed")
		}
	}

	return pred
}

// resolveEvent runs C1, substituting a mock Event on total failure
// only when allowMockOnFailure is set (spec §4.7 step 1).
func (c *Coordinator) resolveEvent(ctx context.Context, ref contracts.EventReference, pred *contracts.Prediction) (*contracts.Event, bool, error) {
	result, err := c.gateway.Resolve(ctx, ref)
	if err != nil {
		if !c.allowMockOnFailure {
			pred.Notices = append(pred.Notices, fmt.Sprintf("market resolution failed: %v", err))
			return nil, false, err
		}
		c.logger.WithError(err).Warn("market resolution failed, substituting mock event")
		mock := market.MockEvent(ref)
		return mock, false, err
	}
	return result.Event, result.LowProbability, nil
}

// enrich runs every configured ContextProvider and merges the first
// successful result per field. Enrichment is best-effort: a failed
// sidecar never blocks the pipeline (spec §9, §11.6).
func (c *Coordinator) enrich(ctx context.Context, event *contracts.Event) *contracts.EnrichmentContext {
	if len(c.enrichers) == 0 {
		return nil
	}

	merged := &contracts.EnrichmentContext{}
	for _, provider := range c.enrichers {
		ec, err := provider.Enrich(ctx, event)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"provider": provider.Name(),
				"error":    err.Error(),
			}).Warn("enrichment provider failed")
			continue
		}
		if ec == nil {
			continue
		}
		if ec.WorldTemperature != nil && merged.WorldTemperature == nil {
			merged.WorldTemperature = ec.WorldTemperature
		}
		if ec.NewsSummary != nil && merged.NewsSummary == nil {
			merged.NewsSummary = ec.NewsSummary
		}
		if ec.AssistantNarrative != nil && merged.AssistantNarrative == nil {
			merged.AssistantNarrative = ec.AssistantNarrative
		}
	}
	return merged
}

// fuseAllOutcomes runs C3 (compose) -> C4 (dispatch) -> C5.Fuse for
// every active outcome concurrently, bounded by outcomeConcurrency
// (O_max, spec §5).
func (c *Coordinator) fuseAllOutcomes(ctx context.Context, event *contracts.Event, active []contracts.Outcome, dims contracts.DimensionAssignments) []outcomeFusion {
	eventIndices := event.ActiveOutcomeIndices()

	sem := make(chan struct{}, c.outcomeConcurrency)
	results := make([]outcomeFusion, len(active))
	var wg sync.WaitGroup

	batchTimeout := c.deadlines.ModelCall * time.Duration(c.deadlines.BatchFactor)
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < batchTimeout {
			batchTimeout = remaining
		}
	}

	for i, outcome := range active {
		wg.Add(1)
		go func(idx, eventIdx int, o contracts.Outcome) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = c.fuseOneOutcome(ctx, event, idx, eventIdx, o, dims, batchTimeout)
		}(i, eventIndices[i], outcome)
	}
	wg.Wait()

	return results
}

// fuseOneOutcome composes prompts, dispatches to the model pool, and
// fuses the result for one active outcome. resultIdx addresses
// outcomeFusion's position in the caller's results slice (active-list
// order); eventIdx is the same outcome's position in Event.Outcomes,
// which is what PromptComposer expects.
func (c *Coordinator) fuseOneOutcome(ctx context.Context, event *contracts.Event, resultIdx, eventIdx int, outcome contracts.Outcome, dims contracts.DimensionAssignments, batchTimeout time.Duration) outcomeFusion {
	batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	prompts := make(map[string]string, len(c.modelIDs))
	for _, modelID := range c.modelIDs {
		dim := dims[modelID]
		p, err := c.composer.Compose(event, eventIdx, modelID, dim, event.EnrichmentContext)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"outcome":  outcome.Name,
				"model_id": modelID,
				"error":    err.Error(),
			}).Warn("prompt composition failed, excluding model from this outcome")
			continue
		}
		prompts[modelID] = p
	}

	responses := c.orchestr.DispatchAll(batchCtx, prompts)
	fused := c.fusion.Fuse(outcome.Name, responses, outcome.MarketProbability, event.Category)

	return outcomeFusion{index: resultIdx, eventIdx: eventIdx, name: outcome.Name, fused: fused}
}

// sortedModelIDs returns modelIDs in deterministic order, useful when
// building a Coordinator from a registry whose map iteration order is
// not stable.
func sortedModelIDs(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return sorted
}
