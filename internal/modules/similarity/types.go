package similarity

// Dimension names used in a Breakdown.
const (
	DimMarket    = "market_conditions"
	DimTechnical = "technical_indicators"
	DimTemporal  = "temporal"
	DimOutcome   = "outcome"
	DimSemantic  = "semantic"
)

// DimensionWeights holds the convex-combination weights for the per-dimension
// scores. Weights are renormalized over the dimensions actually present, so
// they only need to be positive, not pre-normalized.
type DimensionWeights struct {
	Market    float64 `json:"market_conditions"`
	Technical float64 `json:"technical_indicators"`
	Temporal  float64 `json:"temporal"`
	Outcome   float64 `json:"outcome"`
	Semantic  float64 `json:"semantic"`
}

// DefaultWeights returns the standard dimension weighting.
func DefaultWeights() DimensionWeights {
	return DimensionWeights{
		Market:    0.30,
		Technical: 0.25,
		Temporal:  0.15,
		Outcome:   0.20,
		Semantic:  0.10,
	}
}

func (w DimensionWeights) weight(dim string) float64 {
	switch dim {
	case DimMarket:
		return w.Market
	case DimTechnical:
		return w.Technical
	case DimTemporal:
		return w.Temporal
	case DimOutcome:
		return w.Outcome
	case DimSemantic:
		return w.Semantic
	}
	return 0
}

// Breakdown holds the per-dimension similarity scores and their weighted
// combination. Every score is in [0,1]; Overall is a convex combination of
// the dimensions present.
type Breakdown struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Overall    float64            `json:"overall"`
}

// Dim returns a dimension score, defaulting to the neutral 0.5 when the
// dimension was not scored.
func (b Breakdown) Dim(name string) float64 {
	if v, ok := b.Dimensions[name]; ok {
		return v
	}
	return 0.5
}
