package ensemble

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/aristath/precedent/internal/vectormath"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearDataset generates y = 2x₀ - x₁ + 0.5 + noise.
func linearDataset(rng *rand.Rand, n int, noise float64) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		X[i] = []float64{x0, x1}
		y[i] = 2*x0 - x1 + 0.5 + rng.NormFloat64()*noise
	}
	return X, y
}

func TestNewEnsembleInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	X, y := linearDataset(rng, 50, 0.1)

	e, err := New(X, y, 8, rng, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, e.Models(), 8)
	weights := e.Weights()
	require.Len(t, weights, 8)

	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestNewEnsembleRejectsBadInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := New(nil, nil, 3, rng, zerolog.Nop())
	assert.Error(t, err)

	_, err = New([][]float64{{1}}, []float64{1, 2}, 3, rng, zerolog.Nop())
	assert.Error(t, err)

	_, err = New([][]float64{{1}}, []float64{1}, 0, rng, zerolog.Nop())
	assert.Error(t, err)
}

func TestEnsemblePredictsLinearRelationship(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	X, y := linearDataset(rng, 100, 0.05)

	e, err := New(X, y, 10, rng, zerolog.Nop())
	require.NoError(t, err)

	pred := e.PredictOne([]float64{4, 2})
	assert.InDelta(t, 2*4-2+0.5, pred, 0.5)
}

func TestComputeWeightsFavorsBestModel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	X, y := linearDataset(rng, 60, 0.1)
	Xval, yval := linearDataset(rng, 30, 0.1)

	e, err := New(X, y, 5, rng, zerolog.Nop())
	require.NoError(t, err)
	e.ComputeWeights(Xval, yval)

	weights := e.Weights()
	scores := make([]float64, len(e.Models()))
	for i, m := range e.Models() {
		scores[i] = m.RSquared(Xval, yval)
	}

	bestModel, bestWeight := 0, 0
	for i := range scores {
		if scores[i] > scores[bestModel] {
			bestModel = i
		}
		if weights[i] > weights[bestWeight] {
			bestWeight = i
		}
	}
	assert.Equal(t, bestModel, bestWeight)

	// Softmax keeps every model influential
	var sum float64
	for _, w := range weights {
		assert.Greater(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestBaggingReducesPredictionVariance(t *testing.T) {
	// Repeatedly fit on noisy data and compare the variance of the
	// ensemble's prediction at a fixed point against a single model's.
	probe := []float64{5, 5}
	const repeats = 40

	var ensemblePreds, singlePreds []float64
	for i := 0; i < repeats; i++ {
		rng := rand.New(rand.NewSource(int64(i)))
		X, y := linearDataset(rng, 40, 3.0)

		e, err := New(X, y, 15, rng, zerolog.Nop())
		require.NoError(t, err)
		ensemblePreds = append(ensemblePreds, e.PredictOne(probe))

		single, err := New(X, y, 1, rng, zerolog.Nop())
		require.NoError(t, err)
		singlePreds = append(singlePreds, single.PredictOne(probe))
	}

	assert.LessOrEqual(t, vectormath.Variance(ensemblePreds), vectormath.Variance(singlePreds))
}

func TestUpdateOnline(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	X, y := linearDataset(rng, 40, 0.1)
	Xnew, ynew := linearDataset(rng, 10, 0.1)

	e, err := New(X, y, 4, rng, zerolog.Nop())
	require.NoError(t, err)

	before := e.Weights()
	require.NoError(t, e.UpdateOnline(Xnew, ynew, 0.3))

	after := e.Weights()
	require.Len(t, after, len(before))
	var sum float64
	for _, w := range after {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// The retrained ensemble still predicts the relationship
	pred := e.PredictOne([]float64{3, 1})
	assert.InDelta(t, 2*3-1+0.5, pred, 0.5)
}

func TestUpdateOnlineRejectsEmptyBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	X, y := linearDataset(rng, 30, 0.1)
	e, err := New(X, y, 3, rng, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, e.UpdateOnline(nil, nil, 0.3))
}

func TestPruneKeepsTopModels(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	Xval, yval := linearDataset(rng, 50, 0.1)

	// Build 10 models of strictly decreasing quality by corrupting the
	// targets progressively harder.
	var models []*Model
	for i := 0; i < 10; i++ {
		X, y := linearDataset(rng, 40, 0.1)
		for j := range y {
			y[j] += rng.NormFloat64() * float64(i) * 4
		}
		m, err := fitModel(X, y)
		require.NoError(t, err)
		models = append(models, m)
	}

	scores := make([]float64, len(models))
	for i, m := range models {
		scores[i] = m.RSquared(Xval, yval)
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	pruned := Prune(models, Xval, yval, 3)
	require.Len(t, pruned, 3)

	kept := map[float64]bool{}
	for _, m := range pruned {
		kept[m.RSquared(Xval, yval)] = true
	}
	for _, top := range sorted[:3] {
		assert.True(t, kept[top], "top-scoring model missing from pruned set")
	}
}

func TestPruneNoOpWhenSmall(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	X, y := linearDataset(rng, 30, 0.1)
	m, err := fitModel(X, y)
	require.NoError(t, err)

	pruned := Prune([]*Model{m}, X, y, 5)
	assert.Len(t, pruned, 1)
}

func TestSoftmax(t *testing.T) {
	w := softmax([]float64{0.9, 0.5, 0.1})
	require.Len(t, w, 3)
	var sum float64
	for _, v := range w {
		assert.Greater(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, w[0], w[1])
	assert.Greater(t, w[1], w[2])
}

func TestModelFallbackOnTinyData(t *testing.T) {
	// Fewer rows than features: OLS is underdetermined, model falls back
	// to the target mean instead of failing.
	m, err := fitModel([][]float64{{1, 2, 3}}, []float64{5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Predict([]float64{9, 9, 9}))
}
