// Package similarity scores how well a historical market situation matches a
// current one, dimension by dimension. Partial data is the norm: missing
// attributes skip their sub-dimension and the remaining weights renormalize,
// so the engine never refuses to score.
package similarity

import (
	"math"
	"time"

	"github.com/aristath/precedent/internal/domain"
	"github.com/rs/zerolog"
)

// Default temporal half-lives in days. General relevance decays faster than
// outcome relevance: an outcome from two months ago still says something
// about how a setup resolves, while its market context is mostly stale.
const (
	DefaultHalfLifeDays        = 30.0
	DefaultOutcomeHalfLifeDays = 60.0

	// temporalFloor keeps old-but-rare analogs from being eliminated
	// entirely by age alone.
	temporalFloor = 0.05
)

// Config holds the tunable similarity parameters.
type Config struct {
	HalfLifeDays        float64
	OutcomeHalfLifeDays float64
}

// Engine scores candidate records against a current record.
type Engine struct {
	halfLifeDays        float64
	outcomeHalfLifeDays float64
	log                 zerolog.Logger
}

// NewEngine creates a similarity engine. Zero config fields fall back to the
// defaults.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = DefaultHalfLifeDays
	}
	if cfg.OutcomeHalfLifeDays <= 0 {
		cfg.OutcomeHalfLifeDays = DefaultOutcomeHalfLifeDays
	}
	return &Engine{
		halfLifeDays:        cfg.HalfLifeDays,
		outcomeHalfLifeDays: cfg.OutcomeHalfLifeDays,
		log:                 log.With().Str("component", "similarity_engine").Logger(),
	}
}

// numericSimilarity is the shared numeric-pair kernel: exp(-k·|a-b|).
// Bounded in (0,1], symmetric, and robust to one-sided normalization errors.
func numericSimilarity(a, b, k float64) float64 {
	return math.Exp(-k * math.Abs(a-b))
}

// categoricalSimilarity gives exact matches full credit and mismatches a
// dimension-specific partial credit, so one mismatched category does not zero
// out an otherwise-similar record.
func categoricalSimilarity(a, b string, mismatchPenalty float64) float64 {
	if a == b {
		return 1.0
	}
	return mismatchPenalty
}

// TemporalDecay returns exp(-ln2/halfLife · ageDays), floored at a small
// positive constant.
func TemporalDecay(ageDays, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Exp(-math.Ln2 / halfLifeDays * ageDays)
	return math.Max(decay, temporalFloor)
}

// subScore accumulates weighted attribute similarities for one dimension.
type subScore struct {
	sum, weight float64
}

func (s *subScore) add(score, weight float64) {
	s.sum += score * weight
	s.weight += weight
}

// value renormalizes over the attributes that were comparable. A dimension
// with zero comparable attributes scores a neutral 0.5.
func (s *subScore) value() float64 {
	if s.weight == 0 {
		return 0.5
	}
	return s.sum / s.weight
}

// numericAttr compares one numeric attribute when both sides carry it.
func numericAttr(s *subScore, a, b *domain.FeatureRecord, key string, k, weight float64) {
	av, aok := a.Num(key)
	bv, bok := b.Num(key)
	if !aok || !bok {
		return
	}
	s.add(numericSimilarity(av, bv, k), weight)
}

// categoricalAttr compares one categorical attribute when both sides carry it.
func categoricalAttr(s *subScore, a, b *domain.FeatureRecord, key string, penalty, weight float64) {
	av, aok := a.Cat(key)
	bv, bok := b.Cat(key)
	if !aok || !bok {
		return
	}
	s.add(categoricalSimilarity(av, bv, penalty), weight)
}

// MarketConditionScore compares overall market context: regime, trend
// direction, volatility and volume.
func (e *Engine) MarketConditionScore(a, b *domain.FeatureRecord) float64 {
	var s subScore
	categoricalAttr(&s, a, b, domain.AttrMarketRegime, 0.2, 0.35)
	categoricalAttr(&s, a, b, domain.AttrTrendDirection, 0.3, 0.20)
	numericAttr(&s, a, b, domain.AttrVolatility, 2.0, 0.25)
	numericAttr(&s, a, b, domain.AttrVolumeRatio, 1.5, 0.20)
	return s.value()
}

// TechnicalIndicatorScore compares indicator state. RSI lives on a 0-100
// scale so its k normalizes the range; the rest are assumed roughly unit
// scale.
func (e *Engine) TechnicalIndicatorScore(a, b *domain.FeatureRecord) float64 {
	var s subScore
	numericAttr(&s, a, b, domain.AttrRSI, 0.1, 0.35)
	numericAttr(&s, a, b, domain.AttrMACD, 2.0, 0.25)
	numericAttr(&s, a, b, domain.AttrMomentum, 2.0, 0.20)
	numericAttr(&s, a, b, domain.AttrTrendStrength, 2.0, 0.20)
	return s.value()
}

// OutcomeScore compares the historical outcome profile of two records, with
// a slower temporal horizon than general relevance.
func (e *Engine) OutcomeScore(a, b *domain.FeatureRecord) float64 {
	var s subScore
	numericAttr(&s, a, b, domain.AttrSuccessRate, 3.0, 0.30)
	numericAttr(&s, a, b, domain.AttrProfitLoss, 2.0, 0.25)
	numericAttr(&s, a, b, domain.AttrDrawdown, 3.0, 0.20)
	numericAttr(&s, a, b, domain.AttrSharpe, 1.0, 0.25)
	return s.value()
}

// SemanticScore compares free-text context. Embedding cosine when both sides
// carry embeddings, token-overlap Jaccard when both carry text, otherwise the
// dimension is not comparable (second return false).
func (e *Engine) SemanticScore(a, b *domain.FeatureRecord) (float64, bool) {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return embeddingSimilarity(a.Embedding, b.Embedding), true
	}
	if a.Text != "" && b.Text != "" {
		return tokenOverlap(a.Text, b.Text), true
	}
	return 0, false
}

// Score produces the full per-dimension breakdown for a candidate against the
// current record. A nil weights pointer uses DefaultWeights. The temporal
// dimension is skipped for candidates without a timestamp rather than being
// given full recency credit.
func (e *Engine) Score(now time.Time, current, candidate *domain.FeatureRecord, weights *DimensionWeights) Breakdown {
	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}

	dims := map[string]float64{
		DimMarket:    e.MarketConditionScore(current, candidate),
		DimTechnical: e.TechnicalIndicatorScore(current, candidate),
		DimOutcome:   e.OutcomeScore(current, candidate),
	}

	if !candidate.Timestamp.IsZero() {
		dims[DimTemporal] = TemporalDecay(candidate.AgeDays(now), e.halfLifeDays)
	}

	if sem, ok := e.SemanticScore(current, candidate); ok {
		dims[DimSemantic] = sem
	}

	var sum, wsum float64
	for dim, score := range dims {
		dw := w.weight(dim)
		sum += score * dw
		wsum += dw
	}

	overall := 0.5
	if wsum > 0 {
		overall = sum / wsum
	}

	return Breakdown{Dimensions: dims, Overall: overall}
}

// OutcomeRecency returns the temporal decay weight on the outcome horizon,
// used by callers ranking scenarios by outcome relevance.
func (e *Engine) OutcomeRecency(now time.Time, r *domain.FeatureRecord) float64 {
	if r.Timestamp.IsZero() {
		return 1.0
	}
	return TemporalDecay(r.AgeDays(now), e.outcomeHalfLifeDays)
}

// Recency returns the temporal decay weight on the general-relevance horizon.
func (e *Engine) Recency(now time.Time, r *domain.FeatureRecord) float64 {
	if r.Timestamp.IsZero() {
		return 1.0
	}
	return TemporalDecay(r.AgeDays(now), e.halfLifeDays)
}
