// Package domain contains the core data types shared by every engine module.
// The domain layer is pure - no infrastructure dependencies.
package domain

import "time"

// Numeric attribute keys. These are the canonical names the external
// extraction layer normalizes loosely-typed records into.
const (
	AttrVolatility    = "volatility"
	AttrVolumeRatio   = "volume_ratio"
	AttrMomentum      = "momentum"
	AttrTrendStrength = "trend_strength"
	AttrRSI           = "rsi"
	AttrMACD          = "macd"
	AttrVIX           = "vix"
	AttrFearGreed     = "fear_greed_index"

	AttrSuccessRate = "success_rate"
	AttrProfitLoss  = "profit_loss"
	AttrDrawdown    = "max_drawdown"
	AttrSharpe      = "sharpe_ratio"
	AttrWinRate     = "win_rate"
	AttrAvgDuration = "avg_duration_days"
)

// Categorical attribute keys.
const (
	AttrMarketRegime   = "market_regime"
	AttrTrendDirection = "trend_direction"
	AttrStrategyType   = "strategy_type"
	AttrRiskLevel      = "risk_level"
	AttrTimeHorizon    = "time_horizon"
)

// FeatureRecord is a normalized historical (or current) market situation.
// Records are immutable once handed to the engine; every engine call builds
// its own working structures.
type FeatureRecord struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
	Text        string             `json:"text,omitempty"`
	Embedding   []float64          `json:"embedding,omitempty"`
	DataQuality float64            `json:"data_quality,omitempty"` // [0,1], 0 = unknown
}

// Num returns a numeric attribute and whether it is present.
func (r *FeatureRecord) Num(key string) (float64, bool) {
	if r == nil || r.Numeric == nil {
		return 0, false
	}
	v, ok := r.Numeric[key]
	return v, ok
}

// Cat returns a categorical attribute and whether it is present.
func (r *FeatureRecord) Cat(key string) (string, bool) {
	if r == nil || r.Categorical == nil {
		return "", false
	}
	v, ok := r.Categorical[key]
	return v, ok && v != ""
}

// AgeDays returns the record age in days relative to now. Records without a
// timestamp report zero age so temporal decay never penalizes them.
func (r *FeatureRecord) AgeDays(now time.Time) float64 {
	if r == nil || r.Timestamp.IsZero() {
		return 0
	}
	age := now.Sub(r.Timestamp).Hours() / 24
	if age < 0 {
		return 0
	}
	return age
}

// Quality returns the record's data-quality score, defaulting to a middling
// 0.5 when the extraction layer did not provide one.
func (r *FeatureRecord) Quality() float64 {
	if r == nil || r.DataQuality <= 0 {
		return 0.5
	}
	if r.DataQuality > 1 {
		return 1
	}
	return r.DataQuality
}
