// Package handlers provides HTTP handlers for regime classification.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/indicators"
	"github.com/aristath/precedent/internal/modules/regime"
	"github.com/rs/zerolog"
)

// Handler handles regime classification HTTP requests
type Handler struct {
	classifier *regime.Classifier
	log        zerolog.Logger
}

// NewHandler creates a new regime handler
func NewHandler(classifier *regime.Classifier, log zerolog.Logger) *Handler {
	return &Handler{
		classifier: classifier,
		log:        log.With().Str("handler", "regime").Logger(),
	}
}

// HandleClassify handles GET /api/regime/classify
// Query parameters: volatility, momentum, volume, trend_strength (required),
// vix, fear_greed_index (optional).
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	features := regime.Features{}

	required := map[string]*float64{
		"volatility":     &features.Volatility,
		"momentum":       &features.Momentum,
		"volume":         &features.Volume,
		"trend_strength": &features.TrendStrength,
	}
	for name, target := range required {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			http.Error(w, "Missing required parameter: "+name, http.StatusBadRequest)
			return
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid value for parameter "+name, http.StatusBadRequest)
			return
		}
		*target = value
	}

	if raw := r.URL.Query().Get("vix"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid value for parameter vix", http.StatusBadRequest)
			return
		}
		features.VIX = &value
	}
	if raw := r.URL.Query().Get("fear_greed_index"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid value for parameter fear_greed_index", http.StatusBadRequest)
			return
		}
		features.FearGreed = &value
	}

	label := h.classifier.Classify(features)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"regime":   label,
			"features": features,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ClassifyCandlesRequest carries raw OHLCV history for classification.
type ClassifyCandlesRequest struct {
	Candles []indicators.Candle `json:"candles"`
}

// HandleClassifyCandles handles POST /api/regime/classify-candles.
// It derives the classifier's inputs from raw candles, so callers without
// their own feature extraction can still classify.
func (h *Handler) HandleClassifyCandles(w http.ResponseWriter, r *http.Request) {
	var req ClassifyCandlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := indicators.FromCandles("query", req.Candles)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	features, err := classifierFeatures(record)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	label := h.classifier.Classify(features)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"regime":     label,
			"features":   features,
			"indicators": record.Numeric,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// classifierFeatures rescales raw candle indicators onto the classifier's
// unit feature space: relative volatility saturates at 10%, momentum is a
// rate-of-change fraction centered on 0.5 saturating at ±10%, and volume is
// a ratio against its moving average where 2x reads as maximal.
func classifierFeatures(record *domain.FeatureRecord) (regime.Features, error) {
	raw := map[string]float64{}
	for _, attr := range []string{
		domain.AttrVolatility,
		domain.AttrMomentum,
		domain.AttrVolumeRatio,
		domain.AttrTrendStrength,
	} {
		value, ok := record.Num(attr)
		if !ok {
			return regime.Features{}, fmt.Errorf("candle history too short to derive %s", attr)
		}
		raw[attr] = value
	}

	return regime.Features{
		Volatility:    clamp01(raw[domain.AttrVolatility] * 10),
		Momentum:      clamp01(0.5 + raw[domain.AttrMomentum]*5),
		Volume:        clamp01(raw[domain.AttrVolumeRatio] / 2),
		TrendStrength: clamp01(raw[domain.AttrTrendStrength]),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
