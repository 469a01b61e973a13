package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/pipeline"
)

// upgrader accepts connections from any origin: the forecast API has
// no browser session state to protect against cross-site hijacking.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamFrame is one message pushed over the socket per completed
// pipeline stage, and a final frame carrying the full Prediction.
type streamFrame struct {
	Stage      string               `json:"stage,omitempty"`
	Desc       string               `json:"description,omitempty"`
	Done       bool                 `json:"done"`
	Prediction *contracts.Prediction `json:"prediction,omitempty"`
}

// PredictStream handles GET /v1/predict/stream: upgrades to a
// websocket and emits one JSON frame per completed stage (C1 resolved,
// C2 classified, ...) before a final frame carrying the assembled
// Prediction. The reference comes from the freeText, marketUrl and slug
// query parameters (the same names Predict reads from its JSON body).
func (h *ForecastHandler) PredictStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := contracts.EventReference{
		FreeText:  q.Get("freeText"),
		MarketURL: q.Get("marketUrl"),
		Slug:      q.Get("slug"),
	}
	if ref.FreeText == "" && ref.MarketURL == "" && ref.Slug == "" {
		writeJSONError(w, http.StatusBadRequest, "one of freeText, marketUrl, or slug is required as a query parameter")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeMu writeMutex
	hook := func(stage contracts.Stage) {
		frame := streamFrame{Stage: stage.ShortName(), Desc: stage.Description()}
		writeMu.writeJSON(conn, frame)
	}

	ctx := pipeline.WithStageHook(r.Context(), hook)
	pred := h.coordinator.Run(ctx, ref)

	writeMu.writeJSON(conn, streamFrame{Done: true, Prediction: pred})
}

// writeMutex serializes concurrent writes to one websocket connection;
// gorilla/websocket forbids concurrent writers on the same conn, and
// the stage hook can fire from a pipeline goroutine while Run's
// caller goroutine is about to write the final frame.
type writeMutex struct {
	mu sync.Mutex
}

func (w *writeMutex) writeJSON(conn *websocket.Conn, v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = conn.WriteJSON(v)
}
