package ensemble

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
)

// Stacking pipes inputs through a set of bagged base models and then through
// a meta-model fit on the base models' held-out predictions. The meta
// training matrix has exactly one column per base model.
type Stacking struct {
	base []*Model
	meta *Model
}

// NewStacking trains base models on the training part of a (1-valSplit) /
// valSplit split, builds the meta features from their predictions on the
// held-out part, and fits the meta regressor on those columns against the
// true held-out targets.
func NewStacking(X [][]float64, y []float64, nModels int, valSplit float64, rng *rand.Rand, log zerolog.Logger) (*Stacking, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d rows, %d targets", len(X), len(y))
	}
	if valSplit <= 0 || valSplit >= 1 {
		valSplit = 0.3
	}

	split := int(float64(len(X)) * (1 - valSplit))
	if split < 1 || split >= len(X) {
		return nil, fmt.Errorf("training set too small to split: %d rows", len(X))
	}

	trainX, trainY := X[:split], y[:split]
	valX, valY := X[split:], y[split:]

	bagged, err := New(trainX, trainY, nModels, rng, log)
	if err != nil {
		return nil, err
	}

	// One meta-feature column per base model
	metaX := make([][]float64, len(valX))
	for i, x := range valX {
		row := make([]float64, len(bagged.models))
		for j, m := range bagged.models {
			row[j] = m.Predict(x)
		}
		metaX[i] = row
	}

	meta, err := fitModel(metaX, valY)
	if err != nil {
		return nil, fmt.Errorf("fitting meta-model: %w", err)
	}

	return &Stacking{base: bagged.models, meta: meta}, nil
}

// BaseModels returns the base models.
func (s *Stacking) BaseModels() []*Model { return s.base }

// PredictOne pipes one sample through every base model and then through the
// meta-model.
func (s *Stacking) PredictOne(x []float64) float64 {
	row := make([]float64, len(s.base))
	for j, m := range s.base {
		row[j] = m.Predict(x)
	}
	return s.meta.Predict(row)
}

// Predict returns stacked predictions for every row of X.
func (s *Stacking) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = s.PredictOne(x)
	}
	return out
}
