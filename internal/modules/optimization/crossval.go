package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/precedent/internal/modules/ensemble"
	"github.com/aristath/precedent/internal/vectormath"
)

// foldModels is the ensemble size used to score a fold's held-out slice.
const foldModels = 3

// Report summarizes a k-fold cross-validation of the optimizer on a dataset:
// per-fold scores with a confidence interval, the stability of each
// optimized parameter across folds, and aggregate risk indicators.
type Report struct {
	FoldScores          []float64          `json:"fold_scores"`
	MeanScore           float64            `json:"mean_score"`
	StdDev              float64            `json:"std_dev"`
	CILow               float64            `json:"ci_low"`
	CIHigh              float64            `json:"ci_high"`
	ParamVariance       map[string]float64 `json:"param_variance"`
	ParamSensitivity    map[string]float64 `json:"param_sensitivity"`
	OverfittingRisk     float64            `json:"overfitting_risk"`
	GeneralizationScore float64            `json:"generalization_score"`
}

// CrossValidate runs the optimizer independently on each of kFolds training
// splits and scores the resulting data fit on the held-out slice. Folds are
// contiguous index ranges. kFolds is clamped so every fold holds at least
// one sample.
func (o *Optimizer) CrossValidate(current map[string]float64, features [][]float64, targets []float64, kFolds int) (*Report, error) {
	n := len(targets)
	if len(features) != n {
		return nil, fmt.Errorf("feature/target length mismatch: %d vs %d", len(features), n)
	}
	if n < 4 {
		return nil, fmt.Errorf("cross-validation needs at least 4 samples, got %d", n)
	}
	if kFolds < 2 {
		kFolds = 2
	}
	if kFolds > n {
		kFolds = n
	}

	foldScores := make([]float64, 0, kFolds)
	paramValues := make(map[string][]float64, len(current))

	for fold := 0; fold < kFolds; fold++ {
		lo := fold * n / kFolds
		hi := (fold + 1) * n / kFolds

		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]float64, 0, n-(hi-lo))
		trainX = append(trainX, features[:lo]...)
		trainX = append(trainX, features[hi:]...)
		trainY = append(trainY, targets[:lo]...)
		trainY = append(trainY, targets[hi:]...)

		result := o.Optimize(current, trainX, trainY)
		for name, value := range result.Params {
			paramValues[name] = append(paramValues[name], value)
		}

		score := o.foldScore(trainX, trainY, features[lo:hi], targets[lo:hi])
		foldScores = append(foldScores, score)
	}

	mean := vectormath.Mean(foldScores)
	std := vectormath.StdDev(foldScores)
	halfWidth := 1.96 * std / math.Sqrt(float64(kFolds))

	report := &Report{
		FoldScores:       foldScores,
		MeanScore:        mean,
		StdDev:           std,
		CILow:            mean - halfWidth,
		CIHigh:           mean + halfWidth,
		ParamVariance:    make(map[string]float64, len(paramValues)),
		ParamSensitivity: make(map[string]float64, len(paramValues)),
	}
	for name, values := range paramValues {
		report.ParamVariance[name] = vectormath.Variance(values)
		report.ParamSensitivity[name] = coefficientOfVariation(values)
	}

	report.OverfittingRisk = overfittingRisk(mean, std)
	consistency := vectormath.Clamp01(1 - overfittingRisk(mean, std))
	report.GeneralizationScore = vectormath.Clamp01(0.7*vectormath.Clamp01(mean) + 0.3*consistency)

	o.log.Debug().
		Int("folds", kFolds).
		Float64("mean_score", mean).
		Float64("generalization", report.GeneralizationScore).
		Msg("Cross-validation complete")

	return report, nil
}

// foldScore fits a small ensemble on the training slice and reports its R²
// on the held-out slice, clamped to [0, 1]. An unusable fold scores zero.
func (o *Optimizer) foldScore(trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) float64 {
	e, err := ensemble.New(trainX, trainY, foldModels, o.rng, o.log)
	if err != nil {
		o.log.Warn().Err(err).Msg("Fold ensemble fit failed, scoring fold as zero")
		return 0
	}

	preds := e.Predict(testX)
	meanY := vectormath.Mean(testY)
	var ssRes, ssTot float64
	for i, actual := range testY {
		r := actual - preds[i]
		d := actual - meanY
		ssRes += r * r
		ssTot += d * d
	}
	if ssTot == 0 {
		return 0
	}
	return vectormath.Clamp01(1 - ssRes/ssTot)
}

// overfittingRisk maps score dispersion relative to the mean onto [0, 1]:
// folds that score inconsistently indicate the optimization does not
// transfer across data slices.
func overfittingRisk(mean, std float64) float64 {
	if mean <= 1e-9 {
		if std <= 1e-9 {
			return 0
		}
		return 1
	}
	return vectormath.Clamp01(std / mean)
}

// coefficientOfVariation is std/|mean|, the scale-free dispersion of a
// parameter's optimized values across folds.
func coefficientOfVariation(values []float64) float64 {
	mean := vectormath.Mean(values)
	if math.Abs(mean) < 1e-9 {
		return 0
	}
	return vectormath.StdDev(values) / math.Abs(mean)
}
