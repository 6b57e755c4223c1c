package clustering

import (
	"math"

	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/vectormath"
)

// Category encodings used in the outcome projection. Unknown values map to
// the end of the table so they cluster together rather than with a real
// category.
var (
	strategyEncoding = map[string]float64{
		"momentum":       0,
		"mean_reversion": 1,
		"breakout":       2,
		"swing":          3,
		"scalping":       4,
	}
	riskEncoding = map[string]float64{
		"low":    0,
		"medium": 1,
		"high":   2,
	}
	horizonEncoding = map[string]float64{
		"intraday": 0,
		"short":    1,
		"medium":   2,
		"long":     3,
	}
)

func encode(table map[string]float64, value string) float64 {
	if v, ok := table[value]; ok {
		return v / float64(len(table))
	}
	return 1.0
}

// projectionDim is the fixed length of an outcome feature vector.
const projectionDim = 10

// Project maps an outcome record to the fixed-length numeric vector the
// clustering engine operates on: normalized success rate, log-scaled P/L,
// volatility, drawdown, Sharpe, win rate, scaled average duration, and the
// encoded strategy/risk/time-horizon categories. Missing attributes project
// to zero.
func Project(r *domain.FeatureRecord) []float64 {
	v := make([]float64, projectionDim)

	if x, ok := r.Num(domain.AttrSuccessRate); ok {
		v[0] = vectormath.Clamp01(x)
	}
	if x, ok := r.Num(domain.AttrProfitLoss); ok {
		// Log scaling keeps one outsized trade from dominating distance
		v[1] = math.Copysign(math.Log1p(math.Abs(x)), x)
	}
	if x, ok := r.Num(domain.AttrVolatility); ok {
		v[2] = x
	}
	if x, ok := r.Num(domain.AttrDrawdown); ok {
		v[3] = x
	}
	if x, ok := r.Num(domain.AttrSharpe); ok {
		v[4] = x
	}
	if x, ok := r.Num(domain.AttrWinRate); ok {
		v[5] = vectormath.Clamp01(x)
	}
	if x, ok := r.Num(domain.AttrAvgDuration); ok {
		v[6] = math.Log1p(math.Max(x, 0))
	}

	if s, ok := r.Cat(domain.AttrStrategyType); ok {
		v[7] = encode(strategyEncoding, s)
	}
	if s, ok := r.Cat(domain.AttrRiskLevel); ok {
		v[8] = encode(riskEncoding, s)
	}
	if s, ok := r.Cat(domain.AttrTimeHorizon); ok {
		v[9] = encode(horizonEncoding, s)
	}

	return v
}
