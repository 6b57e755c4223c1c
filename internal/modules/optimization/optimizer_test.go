package optimization

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// performanceDataset generates samples where the target improves as the
// first feature rises toward 0.8 and degrades past it.
func performanceDataset(rng *rand.Rand, n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := rng.Float64()
		w := rng.Float64()
		X[i] = []float64{v, w}
		y[i] = 1 - math.Abs(v-0.8) + rng.NormFloat64()*0.02
	}
	return X, y
}

func TestOptimizeInsufficientData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	o := NewOptimizer(Config{}, rng, zerolog.Nop())

	current := map[string]float64{"stop_loss": 0.05, "take_profit": 0.1}
	X, y := performanceDataset(rng, 5)

	result := o.Optimize(current, X, y)

	// Parameters come back unmodified with low confidence
	assert.Equal(t, current, result.Params)
	assert.GreaterOrEqual(t, result.Confidence, 0.1)
	assert.LessOrEqual(t, result.Confidence, 0.2)
}

func TestOptimizeReturnsCopyNotAlias(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	o := NewOptimizer(Config{}, rng, zerolog.Nop())

	current := map[string]float64{"threshold": 0.5}
	result := o.Optimize(current, nil, nil)

	result.Params["threshold"] = 99
	assert.Equal(t, 0.5, current["threshold"])
}

func TestOptimizeProposesImprovedParameter(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	o := NewOptimizer(Config{Candidates: 50}, rng, zerolog.Nop())

	// Target rises linearly with the feature over [0, 1]. With the current
	// value sitting above the observed range, the surrogate extrapolates
	// past the best observed target and the search moves the parameter up.
	n := 200
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := rng.Float64()
		X[i] = []float64{v}
		y[i] = 2*v + rng.NormFloat64()*0.02
	}

	current := map[string]float64{"position_size": 1.5}
	result := o.Optimize(current, X, y)
	require.Contains(t, result.Params, "position_size")

	proposed := result.Params["position_size"]
	assert.Greater(t, proposed, 1.5)
	assert.LessOrEqual(t, proposed, 2.25) // perturbation ceiling at +50%
	assert.Greater(t, result.Confidence, 0.2)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestOptimizeKeepsParameterWhenNoImprovementPredicted(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	o := NewOptimizer(Config{Candidates: 50}, rng, zerolog.Nop())

	X, y := performanceDataset(rng, 200)

	// All candidates fall inside the observed feature range, so surrogate
	// predictions cannot exceed the best observed target.
	current := map[string]float64{"position_size": 0.5}
	result := o.Optimize(current, X, y)
	assert.Equal(t, 0.5, result.Params["position_size"])
}

func TestOptimizeDeterministicWithSeed(t *testing.T) {
	X, y := performanceDataset(rand.New(rand.NewSource(4)), 100)
	current := map[string]float64{"a": 0.3, "b": 0.7}

	run := func() Result {
		o := NewOptimizer(Config{}, rand.New(rand.NewSource(42)), zerolog.Nop())
		return o.Optimize(current, X, y)
	}

	first, second := run(), run()
	assert.Equal(t, first.Params, second.Params)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestOptimizeFlatTargetsKeepCurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	o := NewOptimizer(Config{}, rng, zerolog.Nop())

	// Constant targets: the surrogate is flat, no candidate can improve on
	// the best observed value, so every parameter stays put.
	n := 30
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{rng.Float64()}
		y[i] = 0.5
	}

	current := map[string]float64{"window": 14}
	result := o.Optimize(current, X, y)
	assert.Equal(t, 14.0, result.Params["window"])
}

func TestConfidencePenalizesBadData(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	o := NewOptimizer(Config{}, rng, zerolog.Nop())

	X, y := performanceDataset(rng, 50)
	clean := o.Optimize(map[string]float64{"p": 0.4}, X, y)

	// Corrupt half the feature values
	for i := 0; i < len(X); i += 2 {
		X[i][0] = math.NaN()
	}
	dirty := o.Optimize(map[string]float64{"p": 0.4}, X, y)

	assert.Less(t, dirty.Confidence, clean.Confidence)
}

func TestInsufficientDataConfidenceScalesWithSamples(t *testing.T) {
	assert.InDelta(t, 0.1, insufficientDataConfidence(0, 10), 1e-12)
	assert.InDelta(t, 0.15, insufficientDataConfidence(5, 10), 1e-12)
	assert.InDelta(t, 0.2, insufficientDataConfidence(10, 10), 1e-12)
}

func TestSurrogateLineDegenerateInputs(t *testing.T) {
	alpha, beta := surrogateLine([]float64{1, 1, 1}, []float64{2, 3, 4})
	assert.Equal(t, 3.0, alpha)
	assert.Zero(t, beta)

	alpha, beta = surrogateLine(nil, nil)
	assert.Zero(t, alpha)
	assert.Zero(t, beta)
}

func TestSurrogateLineRecoversSlope(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9} // y = 1 + 2x
	alpha, beta := surrogateLine(x, y)
	assert.InDelta(t, 1.0, alpha, 1e-9)
	assert.InDelta(t, 2.0, beta, 1e-9)
}

func TestPerturbStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		v := perturb(2.0, 0.5, rng)
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 3.0)
	}

	// Zero values perturb around a unit scale
	moved := false
	for i := 0; i < 100; i++ {
		if perturb(0, 0.5, rng) != 0 {
			moved = true
			break
		}
	}
	assert.True(t, moved)
}
