package similarity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/precedent/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func testCombiner(embedder Embedder) *Combiner {
	return NewCombiner(testEngine(), embedder, zerolog.Nop())
}

func numericHeavyRecord() *domain.FeatureRecord {
	return &domain.FeatureRecord{
		Numeric: map[string]float64{
			domain.AttrVolatility:    0.3,
			domain.AttrVolumeRatio:   1.1,
			domain.AttrRSI:           58,
			domain.AttrMACD:          0.2,
			domain.AttrMomentum:      0.4,
			domain.AttrTrendStrength: 0.6,
		},
		Categorical: map[string]string{domain.AttrMarketRegime: "trending_up"},
	}
}

func categoricalHeavyRecord() *domain.FeatureRecord {
	return &domain.FeatureRecord{
		Numeric: map[string]float64{domain.AttrVolatility: 0.3},
		Categorical: map[string]string{
			domain.AttrMarketRegime:   "sideways",
			domain.AttrTrendDirection: "flat",
			domain.AttrStrategyType:   "mean_reversion",
			domain.AttrRiskLevel:      "low",
			domain.AttrTimeHorizon:    "short",
		},
	}
}

func TestCombineWeightsSumToOne(t *testing.T) {
	c := testCombiner(nil)
	tests := []struct {
		name    string
		current *domain.FeatureRecord
		cand    *domain.FeatureRecord
	}{
		{"numeric heavy", numericHeavyRecord(), numericHeavyRecord()},
		{"categorical heavy", categoricalHeavyRecord(), categoricalHeavyRecord()},
		{"empty records", &domain.FeatureRecord{}, &domain.FeatureRecord{}},
		{"with text", &domain.FeatureRecord{Text: "breakout"}, &domain.FeatureRecord{Text: "breakdown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Combine(context.Background(), time.Now(), tt.current, tt.cand)
			var sum float64
			for _, w := range result.Weights {
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestCombineBoundsAndInterval(t *testing.T) {
	c := testCombiner(nil)
	result := c.Combine(context.Background(), time.Now(), numericHeavyRecord(), categoricalHeavyRecord())

	assert.GreaterOrEqual(t, result.Overall, 0.0)
	assert.LessOrEqual(t, result.Overall, 1.0)
	assert.LessOrEqual(t, result.CILow, result.Overall)
	assert.GreaterOrEqual(t, result.CIHigh, result.Overall)
	assert.GreaterOrEqual(t, result.CILow, 0.0)
	assert.LessOrEqual(t, result.CIHigh, 1.0)

	for name, score := range result.Scores {
		assert.GreaterOrEqual(t, score, 0.0, name)
		assert.LessOrEqual(t, score, 1.0, name)
	}
}

func TestCombineIdenticalRecordsScoreHigh(t *testing.T) {
	c := testCombiner(nil)
	r := numericHeavyRecord()
	result := c.Combine(context.Background(), time.Now(), r, r)
	assert.Greater(t, result.Overall, 0.9)
}

func TestCombineNumericHeavyBoostsGeometricAlgorithms(t *testing.T) {
	c := testCombiner(nil)
	result := c.Combine(context.Background(), time.Now(), numericHeavyRecord(), numericHeavyRecord())
	assert.Greater(t, result.Weights[AlgoEuclidean], result.Weights[AlgoJaccard])
}

func TestCombineCategoricalHeavyBoostsJaccard(t *testing.T) {
	c := testCombiner(nil)
	result := c.Combine(context.Background(), time.Now(), categoricalHeavyRecord(), categoricalHeavyRecord())
	assert.Greater(t, result.Weights[AlgoJaccard], result.Weights[AlgoEuclidean])
}

func TestCombineUsesEmbedderForText(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"breakout above resistance": {1, 0, 0},
		"breakout over resistance":  {0.9, 0.1, 0},
	}}
	c := testCombiner(embedder)

	a := &domain.FeatureRecord{Text: "breakout above resistance"}
	b := &domain.FeatureRecord{Text: "breakout over resistance"}
	result := c.Combine(context.Background(), time.Now(), a, b)

	require.Contains(t, result.Scores, AlgoEmbedding)
	assert.Greater(t, result.Scores[AlgoEmbedding], 0.9)
}

func TestCombineDegradesWhenEmbedderFails(t *testing.T) {
	c := testCombiner(&stubEmbedder{err: errors.New("service unavailable")})
	a := &domain.FeatureRecord{Text: "breakout"}
	b := &domain.FeatureRecord{Text: "breakdown"}

	result := c.Combine(context.Background(), time.Now(), a, b)

	// Embedding algorithm drops out; the rest still score.
	_, ok := result.Scores[AlgoEmbedding]
	assert.False(t, ok)
	assert.GreaterOrEqual(t, result.Overall, 0.0)
	assert.LessOrEqual(t, result.Overall, 1.0)

	var sum float64
	for _, w := range result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCombinePrecomputedEmbeddings(t *testing.T) {
	c := testCombiner(nil)
	a := &domain.FeatureRecord{Embedding: []float64{1, 2, 3}}
	b := &domain.FeatureRecord{Embedding: []float64{1, 2, 3}}
	result := c.Combine(context.Background(), time.Now(), a, b)
	require.Contains(t, result.Scores, AlgoEmbedding)
	assert.InDelta(t, 1.0, result.Scores[AlgoEmbedding], 1e-9)
}

func TestEuclideanSimilaritySymmetric(t *testing.T) {
	a := numericHeavyRecord()
	b := categoricalHeavyRecord()
	assert.Equal(t, euclideanSimilarity(a, b), euclideanSimilarity(b, a))
	assert.Equal(t, cosineAttributeSimilarity(a, b), cosineAttributeSimilarity(b, a))
}

func TestTextProjectionIncludesCategoricals(t *testing.T) {
	r := categoricalHeavyRecord()
	tokens := textProjection(r)
	assert.Contains(t, tokens, "sideways")
	assert.Contains(t, tokens, "mean_reversion")
}
