package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/models"
	"github.com/marketoracle/forecast/internal/pipeline"
	"github.com/marketoracle/forecast/pkg/logger"
)

// ForecastHandler serves the forecast domain endpoints: POST
// /v1/predict, GET /v1/models, and (wired separately, see stream.go)
// GET /v1/predict/stream.
type ForecastHandler struct {
	coordinator *pipeline.Coordinator
	registry    *models.Registry
	logger      *logger.Logger
}

// NewForecastHandler builds a ForecastHandler bound to a pipeline
// Coordinator and the model registry (for GET /v1/models).
func NewForecastHandler(coord *pipeline.Coordinator, registry *models.Registry, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{coordinator: coord, registry: registry, logger: log.WithField("component", "api.ForecastHandler")}
}

type predictRequest struct {
	FreeText  string `json:"freeText,omitempty"`
	MarketURL string `json:"marketUrl,omitempty"`
	Slug      string `json:"slug,omitempty"`
}

// Predict handles POST /v1/predict: resolves an event reference and
// runs the full pipeline, returning the Prediction envelope as JSON.
func (h *ForecastHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ref := contracts.EventReference{FreeText: req.FreeText, MarketURL: req.MarketURL, Slug: req.Slug}
	if ref.FreeText == "" && ref.MarketURL == "" && ref.Slug == "" {
		writeJSONError(w, http.StatusBadRequest, "one of freeText, marketUrl, or slug is required")
		return
	}

	pred := h.coordinator.Run(r.Context(), ref)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pred); err != nil {
		h.logger.WithError(err).Error("failed to encode prediction response")
	}
}

type modelSummary struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	BaseWeight  float64 `json:"baseWeight"`
	Enabled     bool    `json:"enabled"`
	Fallback    string  `json:"fallback,omitempty"`
}

// Models handles GET /v1/models: lists the configured model registry.
func (h *ForecastHandler) Models(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.All()
	out := make([]modelSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, modelSummary{
			ID:          e.ModelID,
			DisplayName: e.DisplayName,
			BaseWeight:  e.BaseWeight,
			Enabled:     e.Enabled,
			Fallback:    e.Fallback,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"models":    out,
		"fetchedAt": time.Now().UTC(),
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
