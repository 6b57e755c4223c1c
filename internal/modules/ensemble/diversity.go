package ensemble

import (
	"math"

	"github.com/aristath/precedent/internal/vectormath"
)

// DiversityMetrics quantifies how much the base models disagree, and
// decomposes the ensemble error into bias and variance at the sample level.
// The decomposition follows the standard identity E[error] ≈ bias² + variance
// and is used to diagnose whether an ensemble is under- or over-fit.
type DiversityMetrics struct {
	Diversity          float64 `json:"diversity"`           // 1 - mean |pairwise prediction correlation|
	PredictionVariance float64 `json:"prediction_variance"` // per-sample variance across models, averaged
	Agreement          float64 `json:"agreement"`           // fraction of prediction pairs within 10%
	BiasSquared        float64 `json:"bias_squared"`
	Variance           float64 `json:"variance"`
	TotalError         float64 `json:"total_error"`
}

// Diversity computes the disagreement metrics of a model set on (X, y).
func Diversity(models []*Model, X [][]float64, y []float64) DiversityMetrics {
	if len(models) == 0 || len(X) == 0 {
		return DiversityMetrics{}
	}

	// predictions[m][s]: model m's prediction on sample s
	predictions := make([][]float64, len(models))
	for m, model := range models {
		predictions[m] = model.PredictAll(X)
	}

	metrics := DiversityMetrics{
		Diversity: pairwiseDiversity(predictions),
		Agreement: pairwiseAgreement(predictions),
	}

	// Per-sample statistics across models
	column := make([]float64, len(models))
	var sumVar, sumBias2, sumTotal float64
	for s := range X {
		for m := range models {
			column[m] = predictions[m][s]
		}
		meanPred := vectormath.Mean(column)
		variance := vectormath.Variance(column)
		sumVar += variance

		if s < len(y) {
			bias := meanPred - y[s]
			sumBias2 += bias * bias

			var total float64
			for _, p := range column {
				d := p - y[s]
				total += d * d
			}
			sumTotal += total / float64(len(column))
		}
	}

	n := float64(len(X))
	metrics.PredictionVariance = sumVar / n
	if len(y) > 0 {
		ny := math.Min(n, float64(len(y)))
		metrics.BiasSquared = sumBias2 / ny
		metrics.Variance = sumVar / n
		metrics.TotalError = sumTotal / ny
	}

	return metrics
}

// pairwiseDiversity is 1 - mean absolute correlation across model pairs.
// A single model has no pairs and zero diversity.
func pairwiseDiversity(predictions [][]float64) float64 {
	if len(predictions) < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(predictions); i++ {
		for j := i + 1; j < len(predictions); j++ {
			sum += math.Abs(vectormath.Correlation(predictions[i], predictions[j]))
			pairs++
		}
	}
	return 1 - sum/float64(pairs)
}

// pairwiseAgreement is the fraction of model prediction pairs within 10% of
// each other, averaged over samples.
func pairwiseAgreement(predictions [][]float64) float64 {
	if len(predictions) < 2 || len(predictions[0]) == 0 {
		return 1
	}
	var agreeing, total int
	for s := range predictions[0] {
		for i := 0; i < len(predictions); i++ {
			for j := i + 1; j < len(predictions); j++ {
				a, b := predictions[i][s], predictions[j][s]
				scale := math.Max(math.Abs(a), math.Abs(b))
				if scale < 1e-12 || math.Abs(a-b) <= 0.1*scale {
					agreeing++
				}
				total++
			}
		}
	}
	return float64(agreeing) / float64(total)
}
