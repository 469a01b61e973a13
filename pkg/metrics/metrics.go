// Package metrics exposes Prometheus instrumentation for the
// forecasting pipeline (spec §11.5): in-flight model call gauge,
// retry/timeout/fallback counters by component, and a per-stage
// latency histogram.
// ⭐ SSOT: 모든 프로메테우스 메트릭은 이 패키지에서만 정의
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects and exposes the forecasting service's counters,
// gauges, and histograms behind a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	ModelCallsInFlight prometheus.Gauge
	ModelRetriesTotal  *prometheus.CounterVec
	ModelTimeoutsTotal *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	StageLatency       *prometheus.HistogramVec
	PredictionsTotal   *prometheus.CounterVec
}

// New builds a Metrics instance on its own registry (not the global
// default, so tests and multiple instances don't collide).
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ModelCallsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_model_calls_in_flight",
			Help: "Number of model calls currently awaiting a response.",
		}),
		ModelRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_model_retries_total",
			Help: "Total retry attempts issued by the model orchestrator, by model.",
		}, []string{"model_id"}),
		ModelTimeoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_model_timeouts_total",
			Help: "Total model calls that exceeded their deadline, by model.",
		}, []string{"model_id"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_fallbacks_total",
			Help: "Total assistant fallback chain completions, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_stage_latency_seconds",
			Help:    "Wall-clock duration of each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_predictions_total",
			Help: "Total completed pipeline runs, by outcome (BUY/HOLD/SELL signal, completed, timed_out, low_probability).",
		}, []string{"outcome"}),
	}
}

// Handler returns an http.Handler serving this Metrics' registry in
// the Prometheus exposition format, for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRetry increments the retry counter for modelID.
func (m *Metrics) RecordRetry(modelID string) {
	m.ModelRetriesTotal.WithLabelValues(modelID).Inc()
}

// RecordTimeout increments the timeout counter for modelID.
func (m *Metrics) RecordTimeout(modelID string) {
	m.ModelTimeoutsTotal.WithLabelValues(modelID).Inc()
}

// RecordFallback increments the fallback counter for provider, tagged
// with whether it ultimately succeeded or exhausted the chain.
func (m *Metrics) RecordFallback(provider, outcome string) {
	m.FallbacksTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordPrediction increments the completed-prediction counter.
func (m *Metrics) RecordPrediction(outcome string) {
	m.PredictionsTotal.WithLabelValues(outcome).Inc()
}
