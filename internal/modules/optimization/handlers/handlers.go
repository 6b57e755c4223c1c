// Package handlers provides HTTP handlers for parameter optimization.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/precedent/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// Handler handles optimization HTTP requests
type Handler struct {
	optimizer *optimization.Optimizer
	log       zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(optimizer *optimization.Optimizer, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: optimizer,
		log:       log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest represents a request to tune parameters
type OptimizeRequest struct {
	Params   map[string]float64 `json:"params"`
	Features [][]float64        `json:"features"`
	Targets  []float64          `json:"targets"`
}

// CrossValidateRequest represents a request to validate a parameter set
type CrossValidateRequest struct {
	Params   map[string]float64 `json:"params"`
	Features [][]float64        `json:"features"`
	Targets  []float64          `json:"targets"`
	Folds    int                `json:"folds,omitempty"`
}

// HandleOptimize handles POST /api/optimization/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Params) == 0 {
		http.Error(w, "At least one parameter is required", http.StatusBadRequest)
		return
	}

	result := h.optimizer.Optimize(req.Params, req.Features, req.Targets)

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"samples":   len(req.Targets),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCrossValidate handles POST /api/optimization/cross-validate
func (h *Handler) HandleCrossValidate(w http.ResponseWriter, r *http.Request) {
	var req CrossValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Folds <= 0 {
		req.Folds = 5
	}

	report, err := h.optimizer.CrossValidate(req.Params, req.Features, req.Targets, req.Folds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"folds":     req.Folds,
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
