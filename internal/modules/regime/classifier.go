// Package regime classifies a raw market-feature tuple into one of a fixed
// set of named market regimes, and provides a fuzzy-membership layer for
// regime-filtered candidate search.
package regime

import (
	"math"

	"github.com/rs/zerolog"
)

// Label is a discrete market regime.
type Label string

const (
	HighVolatility Label = "high_volatility"
	LowVolatility  Label = "low_volatility"
	TrendingUp     Label = "trending_up"
	TrendingDown   Label = "trending_down"
	Sideways       Label = "sideways"
	Crisis         Label = "crisis"
	Recovery       Label = "recovery"
)

// Labels lists every regime in a stable order.
func Labels() []Label {
	return []Label{HighVolatility, LowVolatility, TrendingUp, TrendingDown, Sideways, Crisis, Recovery}
}

// Features is the normalized feature tuple the classifier operates on. All
// core fields are expected in [0,1]. VIX and FearGreed are optional tail-risk
// signals (also normalized to [0,1]) that drive the override rules.
type Features struct {
	Volatility    float64  `json:"volatility"`
	Momentum      float64  `json:"momentum"`
	Volume        float64  `json:"volume"`
	TrendStrength float64  `json:"trend_strength"`
	VIX           *float64 `json:"vix,omitempty"`
	FearGreed     *float64 `json:"fear_greed_index,omitempty"`
}

func (f Features) vector() [4]float64 {
	return [4]float64{f.Volatility, f.Momentum, f.Volume, f.TrendStrength}
}

// centroids positions each regime in the 4-D (volatility, momentum, volume,
// trend strength) space.
var centroids = map[Label][4]float64{
	HighVolatility: {0.90, 0.50, 0.70, 0.30},
	LowVolatility:  {0.10, 0.50, 0.30, 0.20},
	TrendingUp:     {0.40, 0.80, 0.60, 0.80},
	TrendingDown:   {0.50, 0.20, 0.60, 0.80},
	Sideways:       {0.30, 0.50, 0.40, 0.10},
	Crisis:         {0.95, 0.10, 0.90, 0.60},
	Recovery:       {0.60, 0.70, 0.70, 0.50},
}

// Classifier maps market features to a regime label.
type Classifier struct {
	log zerolog.Logger
}

// NewClassifier creates a regime classifier.
func NewClassifier(log zerolog.Logger) *Classifier {
	return &Classifier{log: log.With().Str("component", "regime_classifier").Logger()}
}

// Classify returns the regime for a feature tuple: nearest centroid by
// Euclidean distance, then the tail-risk overrides. Overrides exist because
// extreme-tail market stress is a qualitatively different regime that
// nearest-centroid alone under-detects.
func (c *Classifier) Classify(features Features) Label {
	label := c.nearestCentroid(features)

	if features.VIX != nil && *features.VIX > 0.8 {
		c.log.Debug().Float64("vix", *features.VIX).Msg("VIX override to crisis")
		return Crisis
	}

	if features.FearGreed != nil && *features.FearGreed < 0.2 {
		if features.Momentum > 0.5 {
			c.log.Debug().Float64("fear_greed", *features.FearGreed).Msg("Fear/greed override to recovery")
			return Recovery
		}
		c.log.Debug().Float64("fear_greed", *features.FearGreed).Msg("Fear/greed override to crisis")
		return Crisis
	}

	return label
}

func (c *Classifier) nearestCentroid(features Features) Label {
	v := features.vector()
	best := Sideways
	bestDist := math.MaxFloat64
	for _, label := range Labels() {
		centroid := centroids[label]
		var dist float64
		for i := 0; i < 4; i++ {
			d := v[i] - centroid[i]
			dist += d * d
		}
		if dist < bestDist {
			bestDist = dist
			best = label
		}
	}
	return best
}
