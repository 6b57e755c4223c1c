// Package optimization tunes strategy parameters against historical
// performance data with a surrogate-model-guided candidate search, and
// validates proposed changes with k-fold cross-validation.
package optimization

import (
	"math"
	"math/rand"
	"sort"

	"github.com/aristath/precedent/internal/vectormath"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Defaults for the candidate search.
const (
	DefaultMinSamples        = 10
	DefaultCandidates        = 20
	DefaultPerturbationRange = 0.5 // candidates within ±50% of the current value
)

// Config holds optimizer tuning knobs. Zero values fall back to defaults.
type Config struct {
	MinSamples        int
	Candidates        int
	PerturbationRange float64
}

// Result is a proposed parameter set with a confidence derived from data
// quality and the magnitude of the proposed change.
type Result struct {
	Params     map[string]float64 `json:"params"`
	Confidence float64            `json:"confidence"`
}

// Optimizer proposes tuned parameter values.
type Optimizer struct {
	cfg Config
	rng *rand.Rand
	log zerolog.Logger
}

// NewOptimizer creates an optimizer. The caller injects the random source so
// candidate perturbation can be made reproducible.
func NewOptimizer(cfg Config, rng *rand.Rand, log zerolog.Logger) *Optimizer {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultCandidates
	}
	if cfg.PerturbationRange <= 0 {
		cfg.PerturbationRange = DefaultPerturbationRange
	}
	return &Optimizer{
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "parameter_optimizer").Logger(),
	}
}

// Optimize proposes new values for each parameter independently: a linear
// surrogate fit on the historical data guides a random candidate search
// scored by expected improvement over the best observed target. This is a
// simplified per-parameter approximation of Bayesian optimization - it uses
// point predictions only, not posterior uncertainty.
//
// Below the minimum sample size the current parameters come back unmodified
// with low confidence; insufficient data is a low-confidence result, not an
// error.
func (o *Optimizer) Optimize(current map[string]float64, features [][]float64, targets []float64) Result {
	n := len(targets)
	if n < o.cfg.MinSamples || len(features) != n {
		o.log.Debug().
			Int("samples", n).
			Int("min_samples", o.cfg.MinSamples).
			Msg("Insufficient data, returning parameters unmodified")
		return Result{
			Params:     copyParams(current),
			Confidence: insufficientDataConfidence(n, o.cfg.MinSamples),
		}
	}

	bestObserved := targets[0]
	for _, t := range targets[1:] {
		if t > bestObserved {
			bestObserved = t
		}
	}

	names := sortedNames(current)
	optimized := make(map[string]float64, len(current))
	var relChanges []float64

	for i, name := range names {
		value := current[name]
		column := featureColumn(features, i)
		alpha, beta := surrogateLine(column, targets)

		best := value
		bestScore := 0.0
		for c := 0; c < o.cfg.Candidates; c++ {
			candidate := perturb(value, o.cfg.PerturbationRange, o.rng)
			predicted := alpha + beta*candidate
			// Expected-improvement style: only credit above the best
			// target seen so far
			score := math.Max(0, predicted-bestObserved)
			if score > bestScore {
				bestScore = score
				best = candidate
			}
		}

		optimized[name] = best
		relChanges = append(relChanges, relativeChange(value, best))
	}

	confidence := o.confidence(features, relChanges, n)
	o.log.Debug().
		Int("params", len(optimized)).
		Float64("confidence", confidence).
		Msg("Parameter optimization complete")

	return Result{Params: optimized, Confidence: confidence}
}

// confidence blends average input data quality, parameter-change stability
// and sample-size adequacy, weighted 0.4/0.4/0.2.
func (o *Optimizer) confidence(features [][]float64, relChanges []float64, n int) float64 {
	quality := dataQuality(features)
	stability := math.Max(0, 1-vectormath.Mean(relChanges)/2)
	adequacy := math.Min(1, float64(n)/float64(5*o.cfg.MinSamples))
	return vectormath.Clamp01(0.4*quality + 0.4*stability + 0.2*adequacy)
}

// insufficientDataConfidence scales within [0.1, 0.2] by how close the
// sample came to the minimum.
func insufficientDataConfidence(n, minSamples int) float64 {
	if minSamples <= 0 {
		return 0.1
	}
	frac := float64(n) / float64(minSamples)
	return 0.1 + 0.1*vectormath.Clamp01(frac)
}

// dataQuality is the fraction of finite values in the feature matrix.
func dataQuality(features [][]float64) float64 {
	var finite, total int
	for _, row := range features {
		for _, v := range row {
			total++
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(finite) / float64(total)
}

// surrogateLine fits the 1-D least-squares surrogate target ≈ α + β·x.
// Degenerate inputs produce a flat line at the target mean, which makes
// every candidate score zero improvement and keeps the current value.
func surrogateLine(x, y []float64) (alpha, beta float64) {
	if len(x) < 2 || len(x) != len(y) || vectormath.Variance(x) == 0 {
		return vectormath.Mean(y), 0
	}
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return vectormath.Mean(y), 0
	}
	return alpha, beta
}

// perturb draws a candidate uniformly within ±rangeFrac of the current
// value. Zero-valued parameters perturb around a unit scale instead so they
// are not stuck at zero forever.
func perturb(value, rangeFrac float64, rng *rand.Rand) float64 {
	scale := math.Abs(value)
	if scale == 0 {
		scale = 1
	}
	offset := (rng.Float64()*2 - 1) * rangeFrac * scale
	return value + offset
}

func relativeChange(old, proposed float64) float64 {
	denom := math.Abs(old)
	if denom < 1e-9 {
		denom = 1
	}
	return math.Abs(proposed-old) / denom
}

// featureColumn extracts column i (wrapped) from the feature matrix, so the
// i-th parameter is guided by the i-th engineered feature. Rows shorter than
// the wrap index contribute zero.
func featureColumn(features [][]float64, i int) []float64 {
	out := make([]float64, len(features))
	for r, row := range features {
		if len(row) == 0 {
			continue
		}
		out[r] = row[i%len(row)]
	}
	return out
}

func sortedNames(params map[string]float64) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyParams(params map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
