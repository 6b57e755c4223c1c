// Package ensemble combines many weak regressors into a single forecast:
// bootstrap-aggregated base models, weighted and stacked prediction,
// diversity and bias-variance diagnostics, performance-based pruning, and
// online weight adaptation.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aristath/precedent/internal/vectormath"
	"github.com/rs/zerolog"
)

// Ensemble is an ordered list of base models with a parallel weight vector
// that always sums to 1. It is mutated in place only by UpdateOnline, which
// replaces both lists atomically.
type Ensemble struct {
	models  []*Model
	weights []float64
	log     zerolog.Logger
}

// New trains nModels base regressors, each on a uniform-with-replacement
// bootstrap resample of size n. Some rows appear multiple times in a
// resample and others not at all - that is the variance-reduction mechanism,
// not a bug. Weights start uniform until ComputeWeights is run.
func New(X [][]float64, y []float64, nModels int, rng *rand.Rand, log zerolog.Logger) (*Ensemble, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d rows, %d targets", len(X), len(y))
	}
	if nModels < 1 {
		return nil, fmt.Errorf("ensemble needs at least one model, got %d", nModels)
	}

	n := len(X)
	models := make([]*Model, 0, nModels)
	for i := 0; i < nModels; i++ {
		bx := make([][]float64, n)
		by := make([]float64, n)
		for j := 0; j < n; j++ {
			idx := rng.Intn(n)
			bx[j] = X[idx]
			by[j] = y[idx]
		}
		model, err := fitModel(bx, by)
		if err != nil {
			return nil, fmt.Errorf("fitting base model %d: %w", i, err)
		}
		models = append(models, model)
	}

	return &Ensemble{
		models:  models,
		weights: uniformWeights(nModels),
		log:     log.With().Str("component", "ensemble").Logger(),
	}, nil
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// Models returns the base models (shared slice, callers must not mutate).
func (e *Ensemble) Models() []*Model { return e.models }

// Weights returns a copy of the current weight vector.
func (e *Ensemble) Weights() []float64 {
	out := make([]float64, len(e.weights))
	copy(out, e.weights)
	return out
}

// PredictOne returns the weighted ensemble prediction for one sample:
// Σ wᵢ·predᵢ / Σ wᵢ.
func (e *Ensemble) PredictOne(x []float64) float64 {
	var sum, wsum float64
	for i, m := range e.models {
		sum += e.weights[i] * m.Predict(x)
		wsum += e.weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// Predict returns weighted predictions for every row of X.
func (e *Ensemble) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = e.PredictOne(x)
	}
	return out
}

// ComputeWeights reweights the base models by softmax over their validation
// R², so the best model dominates but every model retains nonzero influence.
func (e *Ensemble) ComputeWeights(Xval [][]float64, yval []float64) {
	scores := make([]float64, len(e.models))
	for i, m := range e.models {
		scores[i] = m.RSquared(Xval, yval)
	}
	e.weights = softmax(scores)
	e.log.Debug().Floats64("weights", e.weights).Msg("Ensemble weights recomputed")
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var total float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// UpdateOnline retrains every base model on its original training data plus
// the new batch, then updates the weights by exponential moving average:
// w ← α·recentPerformance + (1-α)·w, renormalized. Recent performance slowly
// outweighs stale weight estimates without discarding history abruptly.
// Both lists are replaced atomically; a failure leaves the ensemble intact.
func (e *Ensemble) UpdateOnline(Xnew [][]float64, ynew []float64, alpha float64) error {
	if len(Xnew) == 0 || len(Xnew) != len(ynew) {
		return fmt.Errorf("invalid update batch: %d rows, %d targets", len(Xnew), len(ynew))
	}
	alpha = vectormath.Clamp01(alpha)

	newModels := make([]*Model, len(e.models))
	newWeights := make([]float64, len(e.weights))
	for i, m := range e.models {
		retrained, err := m.retrained(Xnew, ynew)
		if err != nil {
			return fmt.Errorf("retraining base model %d: %w", i, err)
		}
		newModels[i] = retrained

		recent := vectormath.Clamp01(retrained.RSquared(Xnew, ynew))
		newWeights[i] = alpha*recent + (1-alpha)*e.weights[i]
	}

	var total float64
	for _, w := range newWeights {
		total += w
	}
	if total == 0 {
		newWeights = uniformWeights(len(newModels))
	} else {
		for i := range newWeights {
			newWeights[i] /= total
		}
	}

	e.models = newModels
	e.weights = newWeights
	return nil
}

// Prune keeps the top-maxModels base models ranked by individual validation
// R². No replacement or retraining happens; the survivors are returned in
// descending score order.
func Prune(models []*Model, X [][]float64, y []float64, maxModels int) []*Model {
	if maxModels <= 0 || len(models) <= maxModels {
		out := make([]*Model, len(models))
		copy(out, models)
		return out
	}

	type scored struct {
		model *Model
		score float64
	}
	ranked := make([]scored, len(models))
	for i, m := range models {
		ranked[i] = scored{model: m, score: m.RSquared(X, y)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]*Model, maxModels)
	for i := 0; i < maxModels; i++ {
		out[i] = ranked[i].model
	}
	return out
}
