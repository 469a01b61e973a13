package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/logger"
	"github.com/marketoracle/forecast/pkg/metrics"
)

// Orchestrator is the C4 ModelOrchestrator: concurrent dispatch of
// prompts to the configured model pool with per-model timeouts,
// retries, and a bounded semaphore. Grounded on the same worker-pool
// shape as the reference data collector: a buffered job channel, N
// workers draining it, a done-channel closer goroutine, and a result
// channel the caller ranges over.
type Orchestrator struct {
	registry    *Registry
	client      contracts.ModelClient
	modelCallTO time.Duration
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// NewOrchestrator builds an Orchestrator bound to registry and client.
// concurrency is C_max (spec §5, default 5).
func NewOrchestrator(registry *Registry, client contracts.ModelClient, modelCallTimeout time.Duration, concurrency int, log *logger.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Orchestrator{
		registry:    registry,
		client:      client,
		modelCallTO: modelCallTimeout,
		concurrency: concurrency,
		logger:      log.WithField("component", "models.Orchestrator"),
	}
}

// WithMetrics attaches a Metrics recorder; retry and timeout counts
// are no-ops until this is called, so existing callers and tests are
// unaffected.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// GetWeight exposes the registry's base weight to the fusion engine
// via this orchestrator, per the dependency-injected-interface
// inversion called for in spec §9.
func (o *Orchestrator) GetWeight(modelID string) float64 {
	return o.registry.GetWeight(modelID)
}

type dispatchJob struct {
	modelID string
	prompt  string
}

type dispatchResult struct {
	modelID  string
	response contracts.ModelResponse
}

// DispatchAll issues one request per entry in prompts, bounded by a
// semaphore of capacity o.concurrency, honoring ctx's deadline as the
// per-batch cutoff (spec §4.4, §5). Never returns an error: per-model
// failures are recorded as invalid ModelResponse entries, and the
// batch result is always the full map, however degraded.
func (o *Orchestrator) DispatchAll(ctx context.Context, prompts map[string]string) map[string]contracts.ModelResponse {
	jobs := make(chan dispatchJob, len(prompts))
	results := make(chan dispatchResult, len(prompts))

	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(ctx, jobs, results)
		}()
	}

	enabled := make(map[string]bool, len(o.registry.Enabled()))
	for _, id := range o.registry.Enabled() {
		enabled[id] = true
	}

	sent := 0
	for modelID, p := range prompts {
		if !enabled[modelID] {
			continue
		}
		jobs <- dispatchJob{modelID: modelID, prompt: p}
		sent++
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]contracts.ModelResponse, sent)
	for r := range results {
		out[r.modelID] = r.response
	}
	return out
}

// worker drains jobs until the channel is closed or ctx is done,
// calling invokeWithRetry for each and always emitting a result
// (spec §4.4 step 5: "Never raise").
func (o *Orchestrator) worker(ctx context.Context, jobs <-chan dispatchJob, results chan<- dispatchResult) {
	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- dispatchResult{modelID: job.modelID, response: contracts.ModelResponse{ModelID: job.modelID, Error: ctx.Err()}}
			continue
		default:
		}

		if o.metrics != nil {
			o.metrics.ModelCallsInFlight.Inc()
		}
		start := time.Now()
		resp := o.invokeWithRetry(ctx, job.modelID, job.prompt)
		resp.Latency = time.Since(start)
		if o.metrics != nil {
			o.metrics.ModelCallsInFlight.Dec()
			if errors.Is(resp.Error, context.DeadlineExceeded) {
				o.metrics.RecordTimeout(job.modelID)
			}
		}

		if resp.Error != nil {
			o.logger.WithFields(map[string]interface{}{
				"model_id": job.modelID,
				"latency":  resp.Latency,
				"error":    resp.Error.Error(),
			}).Warn("model call failed, recording invalid response")
		}

		results <- dispatchResult{modelID: job.modelID, response: resp}
	}
}

// invokeWithRetry attempts up to 2 retries with exponential backoff
// (1s, 2s), each bounded by ctx's remaining deadline (spec §4.4 step 4).
func (o *Orchestrator) invokeWithRetry(ctx context.Context, modelID string, promptText string) contracts.ModelResponse {
	entry, ok := o.registry.Get(modelID)
	if !ok {
		return contracts.ModelResponse{ModelID: modelID, Error: fmt.Errorf("model %q is not in the registry", modelID)}
	}

	const maxRetries = 2
	delay := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if deadline, has := ctx.Deadline(); has && time.Until(deadline) <= 0 {
			break
		}

		rawText, err := o.client.Invoke(ctx, entry.Endpoint, entry.ModelID, promptText, o.modelCallTO)
		if err == nil {
			resp := parseModelResponse(modelID, rawText)
			if resp.Error == nil {
				return resp
			}
			lastErr = resp.Error
		} else {
			lastErr = err
		}

		if attempt == maxRetries {
			break
		}

		if o.metrics != nil {
			o.metrics.RecordRetry(modelID)
		}

		if deadline, has := ctx.Deadline(); has && time.Until(deadline) <= delay {
			break
		}

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = maxRetries
		case <-time.After(delay):
		}

		delay *= 2
	}

	return contracts.ModelResponse{ModelID: modelID, Error: lastErr}
}
