// Package handlers provides HTTP handlers for ensemble prediction.
package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/aristath/precedent/internal/modules/ensemble"
	"github.com/rs/zerolog"
)

// DefaultModels is the ensemble size when a request does not specify one.
const DefaultModels = 10

// Handler handles ensemble HTTP requests. Ensembles are built per request;
// the engine holds no cross-request state.
type Handler struct {
	rng *rand.Rand
	log zerolog.Logger
}

// NewHandler creates a new ensemble handler
func NewHandler(rng *rand.Rand, log zerolog.Logger) *Handler {
	return &Handler{
		rng: rng,
		log: log.With().Str("handler", "ensemble").Logger(),
	}
}

// PredictRequest represents a request to fit an ensemble and predict
type PredictRequest struct {
	Features    [][]float64 `json:"features"`
	Targets     []float64   `json:"targets"`
	Inputs      [][]float64 `json:"inputs"`
	Models      int         `json:"models,omitempty"`
	ValFeatures [][]float64 `json:"val_features,omitempty"`
	ValTargets  []float64   `json:"val_targets,omitempty"`
}

// HandlePredict handles POST /api/ensemble/predict
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Models <= 0 {
		req.Models = DefaultModels
	}

	e, err := ensemble.New(req.Features, req.Targets, req.Models, h.rng, h.log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validation data sharpens the weights; without it they stay uniform
	if len(req.ValFeatures) > 0 && len(req.ValFeatures) == len(req.ValTargets) {
		e.ComputeWeights(req.ValFeatures, req.ValTargets)
	}

	predictions := e.Predict(req.Inputs)
	diversity := ensemble.Diversity(e.Models(), req.Features, req.Targets)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"predictions": predictions,
			"weights":     e.Weights(),
			"diversity":   diversity,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"models":    req.Models,
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
