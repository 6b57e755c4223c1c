package ensemble

import (
	"fmt"

	"github.com/aristath/precedent/internal/vectormath"
	"gonum.org/v1/gonum/mat"
)

// Model is one base regressor: ordinary least squares with intercept, fit on
// a (possibly resampled) training set. The training data is retained because
// the online-update path retrains on original-plus-new data.
type Model struct {
	coef      []float64 // intercept first, then one weight per feature
	fallback  float64   // mean predictor used when the system is singular
	useMean   bool
	trainX    [][]float64
	trainY    []float64
}

// fitModel fits an OLS regressor via QR decomposition. Degenerate systems
// (too few rows, collinear features) fall back to predicting the target mean
// rather than failing: a weak model is still a usable ensemble member.
func fitModel(X [][]float64, y []float64) (*Model, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d rows, %d targets", len(X), len(y))
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("ragged training matrix: row %d has %d features, expected %d", i, len(row), d)
		}
	}

	m := &Model{
		trainX: X,
		trainY: y,
	}

	if coef, ok := solveOLS(X, y); ok {
		m.coef = coef
		return m, nil
	}

	m.useMean = true
	m.fallback = vectormath.Mean(y)
	return m, nil
}

// solveOLS solves min ||Ax - y|| with an intercept column via QR.
func solveOLS(X [][]float64, y []float64) ([]float64, bool) {
	n := len(X)
	d := len(X[0])
	if n < d+1 {
		return nil, false
	}

	a := mat.NewDense(n, d+1, nil)
	b := mat.NewVecDense(n, nil)
	for i, row := range X {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
		b.SetVec(i, y[i])
	}

	var qr mat.QR
	qr.Factorize(a)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return nil, false
	}

	coef := make([]float64, d+1)
	for i := range coef {
		coef[i] = sol.AtVec(i)
	}
	return coef, true
}

// Predict returns the model's prediction for one feature vector.
func (m *Model) Predict(x []float64) float64 {
	if m.useMean {
		return m.fallback
	}
	pred := m.coef[0]
	for i, v := range x {
		if i+1 >= len(m.coef) {
			break
		}
		pred += m.coef[i+1] * v
	}
	return pred
}

// PredictAll returns predictions for every row of X.
func (m *Model) PredictAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

// RSquared is the coefficient of determination of the model on (X, y).
// A constant target yields 0 (no variance to explain).
func (m *Model) RSquared(X [][]float64, y []float64) float64 {
	if len(X) == 0 || len(X) != len(y) {
		return 0
	}
	mean := vectormath.Mean(y)
	var ssRes, ssTot float64
	for i, x := range X {
		d := y[i] - m.Predict(x)
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// retrained returns a new model fit on this model's original training data
// concatenated with the new batch. True incremental learning is out of
// scope; retraining keeps the base-model contract simple.
func (m *Model) retrained(Xnew [][]float64, ynew []float64) (*Model, error) {
	X := make([][]float64, 0, len(m.trainX)+len(Xnew))
	y := make([]float64, 0, len(m.trainY)+len(ynew))
	X = append(X, m.trainX...)
	X = append(X, Xnew...)
	y = append(y, m.trainY...)
	y = append(y, ynew...)
	return fitModel(X, y)
}
