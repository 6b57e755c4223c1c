// Package handlers provides HTTP handlers for analog search and outcome
// clustering.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/modules/analogs"
	"github.com/aristath/precedent/internal/modules/clustering"
	"github.com/rs/zerolog"
)

// Handler handles analog search HTTP requests
type Handler struct {
	service  *analogs.Service
	clusters *clustering.Service
	log      zerolog.Logger
}

// NewHandler creates a new analogs handler
func NewHandler(service *analogs.Service, clusters *clustering.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		clusters: clusters,
		log:      log.With().Str("handler", "analogs").Logger(),
	}
}

// ClusterRequest represents a request to cluster outcome records
type ClusterRequest struct {
	Outcomes []*domain.FeatureRecord `json:"outcomes"`
}

// HandleSearch handles POST /api/analogs/search
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var query analogs.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.FindAnalogs(r.Context(), query)
	if err != nil {
		if errors.Is(err, analogs.ErrMalformedQuery) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Analog search failed")
		http.Error(w, "Analog search failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": resp,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCluster handles POST /api/analogs/cluster
func (h *Handler) HandleCluster(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := h.clusters.Cluster(req.Outcomes)

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"outcomes":  len(req.Outcomes),
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
