package models

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/config"
	"github.com/marketoracle/forecast/pkg/logger"
)

type fakeClient struct {
	calls      int32
	failTimes  int32 // how many leading calls fail before succeeding
	alwaysFail bool
	response   string
}

func (f *fakeClient) Invoke(ctx context.Context, endpoint string, modelID string, prompt string, timeout time.Duration) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.alwaysFail {
		return "", fmt.Errorf("simulated failure")
	}
	if n <= f.failTimes {
		return "", fmt.Errorf("simulated transient failure %d", n)
	}
	return f.response, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func TestDispatchAll_ExcludesDisabledModels(t *testing.T) {
	reg, err := NewRegistry([]contracts.ModelRegistryEntry{
		{ModelID: "on", Endpoint: "http://x", BaseWeight: 1, Enabled: true},
		{ModelID: "off", Endpoint: "http://x", BaseWeight: 1, Enabled: false},
	})
	require.NoError(t, err)

	client := &fakeClient{response: `{"probability": 50, "confidence": "medium", "reasoning": "x"}`}
	orch := NewOrchestrator(reg, client, time.Second, 5, testLogger())

	results := orch.DispatchAll(context.Background(), map[string]string{"on": "p", "off": "p"})
	_, hasOn := results["on"]
	_, hasOff := results["off"]
	assert.True(t, hasOn)
	assert.False(t, hasOff)
}

func TestDispatchAll_RetriesThenSucceeds(t *testing.T) {
	reg, err := NewRegistry([]contracts.ModelRegistryEntry{
		{ModelID: "flaky", Endpoint: "http://x", BaseWeight: 1, Enabled: true},
	})
	require.NoError(t, err)

	client := &fakeClient{failTimes: 1, response: `{"probability": 80, "confidence": "high", "reasoning": "x"}`}
	orch := NewOrchestrator(reg, client, time.Second, 5, testLogger())

	results := orch.DispatchAll(context.Background(), map[string]string{"flaky": "p"})
	resp := results["flaky"]
	assert.NoError(t, resp.Error)
	assert.InDelta(t, 80.0, resp.Probability, 0.001)
	assert.GreaterOrEqual(t, client.calls, int32(2))
}

func TestDispatchAll_NeverRaisesOnTotalFailure(t *testing.T) {
	reg, err := NewRegistry([]contracts.ModelRegistryEntry{
		{ModelID: "dead", Endpoint: "http://x", BaseWeight: 1, Enabled: true},
	})
	require.NoError(t, err)

	client := &fakeClient{alwaysFail: true}
	orch := NewOrchestrator(reg, client, 50*time.Millisecond, 5, testLogger())

	results := orch.DispatchAll(context.Background(), map[string]string{"dead": "p"})
	resp, ok := results["dead"]
	assert.True(t, ok)
	assert.Error(t, resp.Error)
	assert.False(t, resp.Valid())
}

func TestDispatchAll_UnknownModelNotInRegistry(t *testing.T) {
	reg, err := NewRegistry([]contracts.ModelRegistryEntry{
		{ModelID: "known", Endpoint: "http://x", BaseWeight: 1, Enabled: true},
	})
	require.NoError(t, err)

	client := &fakeClient{response: `{"probability": 50, "confidence": "medium", "reasoning": "x"}`}
	orch := NewOrchestrator(reg, client, time.Second, 5, testLogger())

	// "known" is dispatched; results map never includes models absent
	// from the registry's enabled set, matching DispatchAll's filter.
	results := orch.DispatchAll(context.Background(), map[string]string{"known": "p", "ghost": "p"})
	_, hasGhost := results["ghost"]
	assert.False(t, hasGhost)
}
