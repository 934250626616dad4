package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/fourdrun/internal/persistence"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// LatestPrediction handles GET /api/v1/predictions/latest.
func (h *Handlers) LatestPrediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Repo.Predictions.Latest(r.Context())
	if errors.Is(err, persistence.ErrNotFound) {
		h.writeError(w, r, http.StatusNotFound, "prediction_not_found", "No prediction has been stored yet")
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, predictionResponse(*p))
}

// Predictions handles GET /api/v1/predictions?limit=N.
func (h *Handlers) Predictions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			h.writeError(w, r, http.StatusBadRequest, "invalid_limit",
				"limit must be an integer between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}

	list, err := h.deps.Repo.Predictions.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	resp := PredictionsResponse{Count: len(list), Predictions: make([]PredictionResponse, len(list))}
	for i, p := range list {
		resp.Predictions[i] = predictionResponse(p)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// LatestBox handles GET /api/v1/boxes/latest.
func (h *Handlers) LatestBox(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Repo.Boxes.Latest(r.Context())
	if errors.Is(err, persistence.ErrNotFound) {
		h.writeError(w, r, http.StatusNotFound, "box_not_found", "No box has been stored yet")
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, BoxResponse{
		ID:         b.ID,
		CreatedAt:  b.CreatedAt,
		HistoryTo:  b.HistoryTo,
		Strategy:   b.Strategy,
		Grid:       b.Box,
		Rows:       strings.Split(b.Box.String(), "\n"),
		Degenerate: b.Degenerate,
		Settled:    b.Settled(),
		SettledFor: b.SettledFor,
		Stats:      statLines(b.Stats),
	})
}

// HitRates handles GET /api/v1/stats.
func (h *Handlers) HitRates(w http.ResponseWriter, r *http.Request) {
	resp := HitRatesResponse{Timestamp: time.Now().UTC(), Rates: map[string]float64{}}
	if h.deps.Metrics != nil {
		resp.Rates = h.deps.Metrics.Snapshot()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func predictionResponse(p persistence.Prediction) PredictionResponse {
	return PredictionResponse{
		ID:         p.ID,
		CreatedAt:  p.CreatedAt,
		HistoryTo:  p.HistoryTo,
		Numbers:    p.Numbers,
		Scores:     p.Scores,
		Settled:    p.Settled(),
		SettledFor: p.SettledFor,
		Stats:      statLines(p.Stats),
	}
}

func statLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
