package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/fusion"
	"github.com/marketoracle/forecast/internal/market"
	"github.com/marketoracle/forecast/internal/signal"
	"github.com/marketoracle/forecast/pkg/config"
	"github.com/marketoracle/forecast/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func p(v float64) *float64 { return &v }

type fakeSource struct {
	name  string
	event *contracts.Event
	err   error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Resolve(ctx context.Context, ref contracts.EventReference) (*contracts.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(event *contracts.Event, modelIDs []string) (contracts.DimensionAssignments, error) {
	event.Category = contracts.CategoryOther
	event.FamilyType = contracts.FamilyBinary
	out := make(contracts.DimensionAssignments, len(modelIDs))
	for _, id := range modelIDs {
		out[id] = contracts.DimensionStatisticalBaseRate
	}
	return out, nil
}

type fakeComposer struct{}

func (fakeComposer) Compose(event *contracts.Event, outcomeIdx int, modelID string, dim contracts.Dimension, enrich *contracts.EnrichmentContext) (string, error) {
	return fmt.Sprintf("prompt for %s outcome %d", modelID, outcomeIdx), nil
}

type fakeOrchestrator struct {
	weight float64
}

func (f fakeOrchestrator) GetWeight(modelID string) float64 { return f.weight }
func (f fakeOrchestrator) DispatchAll(ctx context.Context, prompts map[string]string) map[string]contracts.ModelResponse {
	out := make(map[string]contracts.ModelResponse, len(prompts))
	for modelID := range prompts {
		out[modelID] = contracts.ModelResponse{ModelID: modelID, Probability: 70, Confidence: contracts.ConfidenceMedium}
	}
	return out
}

func buildEngine() *fusion.Engine {
	return fusion.NewEngine(fakeWeightLookup{}, nil, 0.8, nil)
}

type fakeWeightLookup struct{}

func (fakeWeightLookup) GetWeight(modelID string) float64 { return 1.0 }

func newCoordinatorWithSources(sources []contracts.MarketSource, allowMock bool) *Coordinator {
	gw := market.NewGateway(sources, 5*time.Second, 1.0, testLogger())
	engine := buildEngine()
	evaluator := signal.NewEvaluator(signal.DefaultParams())

	return NewCoordinator(
		gw,
		fakeClassifier{},
		fakeComposer{},
		fakeOrchestrator{weight: 1.0},
		engine,
		evaluator,
		[]string{"model-a", "model-b"},
		Options{OutcomeConcurrency: 2, Deadlines: Deadlines{Total: 5 * time.Second, ModelCall: time.Second, BatchFactor: 2}, AllowMockOnFailure: allowMock},
		testLogger(),
	)
}

func TestRun_SingleOutcomeHappyPath(t *testing.T) {
	event := &contracts.Event{
		Question:         "Will X happen?",
		DaysToResolution: p(30),
		Outcomes: []contracts.Outcome{
			{Name: "Yes", Active: true, MarketProbability: p(50)},
		},
	}
	sources := []contracts.MarketSource{fakeSource{name: "structured_api", event: event}}
	coord := newCoordinatorWithSources(sources, false)

	pred := coord.Run(context.Background(), contracts.EventReference{Slug: "will-x-happen"})

	require.Len(t, pred.Outcomes, 1)
	require.NotNil(t, pred.Outcomes[0].ModelOnlyProb)
	assert.InDelta(t, 70.0, *pred.Outcomes[0].ModelOnlyProb, 0.001)
	require.NotNil(t, pred.TradeSignal)
	assert.Contains(t, pred.CompletedStages, contracts.StageCoordinate.String())
}

func TestRun_AllMarketSourcesFailWithoutMockReturnsDegradedPrediction(t *testing.T) {
	sources := []contracts.MarketSource{
		fakeSource{name: "structured_api", err: assertErr("boom1")},
		fakeSource{name: "secondary_query_api", err: assertErr("boom2")},
	}
	coord := newCoordinatorWithSources(sources, false)

	pred := coord.Run(context.Background(), contracts.EventReference{FreeText: "some event"})

	assert.Empty(t, pred.Outcomes)
	assert.NotEmpty(t, pred.Notices)
}

func TestRun_AllMarketSourcesFailWithMockSubstitutesDegradedEvent(t *testing.T) {
	sources := []contracts.MarketSource{
		fakeSource{name: "structured_api", err: assertErr("boom")},
	}
	coord := newCoordinatorWithSources(sources, true)

	pred := coord.Run(context.Background(), contracts.EventReference{FreeText: "some event"})

	assert.True(t, pred.Event.IsMock)
	// Trade signal is never emitted for a mock event (no real market
	// probability to compute EV against).
	assert.Nil(t, pred.TradeSignal)
}

func TestRun_MultiOutcomeSelectsLargestAbsoluteEV(t *testing.T) {
	event := &contracts.Event{
		Question:         "Who wins?",
		DaysToResolution: p(30),
		Outcomes: []contracts.Outcome{
			{Name: "A", Active: true, MarketProbability: p(60)},
			{Name: "B", Active: true, MarketProbability: p(30)},
		},
	}
	sources := []contracts.MarketSource{fakeSource{name: "structured_api", event: event}}
	coord := newCoordinatorWithSources(sources, false)

	pred := coord.Run(context.Background(), contracts.EventReference{Slug: "who-wins"})

	require.Len(t, pred.Outcomes, 2)
	require.NotNil(t, pred.TradeSignal)
	// Both outcomes resolve to ModelOnlyProb=70 from the fake
	// orchestrator; |70-30|=40 > |70-60|=10, so outcome B should win.
	assert.Equal(t, "B", pred.TradeSignal.OutcomeName)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
