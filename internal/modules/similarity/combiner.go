package similarity

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/fallback"
	"github.com/aristath/precedent/internal/vectormath"
	"github.com/rs/zerolog"
)

// Algorithm names reported in a CombinedScore for explainability.
const (
	AlgoEuclidean = "euclidean"
	AlgoCosine    = "cosine"
	AlgoWeighted  = "weighted"
	AlgoJaccard   = "jaccard"
	AlgoEmbedding = "embedding"
)

// Embedder is the optional semantic-similarity collaborator. A nil Embedder
// degrades the embedding algorithm to absent; lexical overlap still runs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CombinedScore is the output of the multi-algorithm combiner: the raw score
// of every algorithm that ran, the dynamic weights used, the weighted mean,
// and a 95% interval derived from the weighted variance.
type CombinedScore struct {
	Scores  map[string]float64 `json:"scores"`
	Weights map[string]float64 `json:"weights"`
	Overall float64            `json:"overall"`
	CILow   float64            `json:"ci_low"`
	CIHigh  float64            `json:"ci_high"`
}

// Combiner runs several independent similarity algorithms and blends them
// with input-dependent weights.
type Combiner struct {
	engine   *Engine
	embedder Embedder
	log      zerolog.Logger
}

// NewCombiner creates a combiner. embedder may be nil.
func NewCombiner(engine *Engine, embedder Embedder, log zerolog.Logger) *Combiner {
	return &Combiner{
		engine:   engine,
		embedder: embedder,
		log:      log.With().Str("component", "similarity_combiner").Logger(),
	}
}

// Combine scores a candidate with every applicable algorithm and returns the
// dynamically-weighted blend. Individual algorithm failures degrade to the
// neutral 0.5 rather than aborting the combination.
func (c *Combiner) Combine(ctx context.Context, now time.Time, current, candidate *domain.FeatureRecord) CombinedScore {
	scores := map[string]float64{
		AlgoEuclidean: fallback.Float(c.log, "euclidean_similarity", 0.5, func() (float64, error) {
			return euclideanSimilarity(current, candidate), nil
		}),
		AlgoCosine: fallback.Float(c.log, "cosine_similarity", 0.5, func() (float64, error) {
			return cosineAttributeSimilarity(current, candidate), nil
		}),
		AlgoWeighted: fallback.Float(c.log, "weighted_similarity", 0.5, func() (float64, error) {
			return c.engine.Score(now, current, candidate, nil).Overall, nil
		}),
		AlgoJaccard: fallback.Float(c.log, "jaccard_similarity", 0.5, func() (float64, error) {
			return vectormath.JaccardSimilarity(textProjection(current), textProjection(candidate)), nil
		}),
	}

	if emb, ok := c.embeddingScore(ctx, current, candidate); ok {
		scores[AlgoEmbedding] = emb
	}

	weights := dynamicWeights(current, candidate, scores)

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	xs := make([]float64, len(names))
	ws := make([]float64, len(names))
	for i, name := range names {
		xs[i] = scores[name]
		ws[i] = weights[name]
	}

	mean := vectormath.WeightedMean(xs, ws)
	sd := math.Sqrt(vectormath.WeightedVariance(xs, ws))

	return CombinedScore{
		Scores:  scores,
		Weights: weights,
		Overall: vectormath.Clamp01(mean),
		CILow:   vectormath.Clamp01(mean - 1.96*sd),
		CIHigh:  vectormath.Clamp01(mean + 1.96*sd),
	}
}

// embeddingScore computes embedding cosine similarity, fetching missing
// embeddings from the embedder when one is configured. Absence of both
// embeddings and embedder means the algorithm does not participate.
func (c *Combiner) embeddingScore(ctx context.Context, a, b *domain.FeatureRecord) (float64, bool) {
	ea, eb := a.Embedding, b.Embedding

	if c.embedder != nil {
		var err error
		if len(ea) == 0 && a.Text != "" {
			if ea, err = c.embedder.Embed(ctx, a.Text); err != nil {
				c.log.Warn().Err(err).Msg("Embedding fetch failed for current record")
				ea = nil
			}
		}
		if len(eb) == 0 && b.Text != "" {
			if eb, err = c.embedder.Embed(ctx, b.Text); err != nil {
				c.log.Warn().Err(err).Msg("Embedding fetch failed for candidate record")
				eb = nil
			}
		}
	}

	if len(ea) == 0 || len(eb) == 0 {
		return 0, false
	}
	return embeddingSimilarity(ea, eb), true
}

// dynamicWeights shifts the base algorithm weights toward the algorithms best
// suited to the input shape: euclidean/cosine for numeric-heavy records,
// jaccard/weighted for categorical-heavy ones, embedding when free text is
// present. The result always sums to 1.
func dynamicWeights(current, candidate *domain.FeatureRecord, scores map[string]float64) map[string]float64 {
	weights := map[string]float64{
		AlgoEuclidean: 0.25,
		AlgoCosine:    0.25,
		AlgoWeighted:  0.30,
		AlgoJaccard:   0.20,
	}
	if _, ok := scores[AlgoEmbedding]; ok {
		weights[AlgoEmbedding] = 0.25
	}

	numeric := len(current.Numeric) + len(candidate.Numeric)
	categorical := len(current.Categorical) + len(candidate.Categorical)
	if numeric+categorical > 0 {
		ratio := float64(numeric) / float64(numeric+categorical)
		switch {
		case ratio > 0.6:
			weights[AlgoEuclidean] += 0.10
			weights[AlgoCosine] += 0.10
		case ratio < 0.4:
			weights[AlgoJaccard] += 0.10
			weights[AlgoWeighted] += 0.10
		}
	}

	if current.Text != "" || candidate.Text != "" {
		if _, ok := weights[AlgoEmbedding]; ok {
			weights[AlgoEmbedding] += 0.15
		} else {
			weights[AlgoJaccard] += 0.05
		}
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	for name := range weights {
		weights[name] /= total
	}
	return weights
}

// sharedNumericVectors builds aligned vectors over the numeric attributes
// both records carry, in sorted key order.
func sharedNumericVectors(a, b *domain.FeatureRecord) ([]float64, []float64) {
	keys := make([]string, 0, len(a.Numeric))
	for key := range a.Numeric {
		if _, ok := b.Numeric[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	va := make([]float64, len(keys))
	vb := make([]float64, len(keys))
	for i, key := range keys {
		va[i] = a.Numeric[key]
		vb[i] = b.Numeric[key]
	}
	return va, vb
}

// euclideanSimilarity maps L2 distance over shared numeric attributes into
// (0,1] via 1/(1+d). No shared attributes scores neutral.
func euclideanSimilarity(a, b *domain.FeatureRecord) float64 {
	va, vb := sharedNumericVectors(a, b)
	if len(va) == 0 {
		return 0.5
	}
	return 1.0 / (1.0 + vectormath.EuclideanDistance(va, vb))
}

// cosineAttributeSimilarity maps cosine over shared numeric attributes from
// [-1,1] into [0,1]. No shared attributes scores neutral.
func cosineAttributeSimilarity(a, b *domain.FeatureRecord) float64 {
	va, vb := sharedNumericVectors(a, b)
	if len(va) == 0 {
		return 0.5
	}
	return (vectormath.CosineSimilarity(va, vb) + 1) / 2
}

// embeddingSimilarity maps embedding cosine into [0,1].
func embeddingSimilarity(a, b []float64) float64 {
	return vectormath.Clamp01((vectormath.CosineSimilarity(a, b) + 1) / 2)
}

// textProjection flattens a record's categorical attributes and free text
// into a token set for lexical overlap.
func textProjection(r *domain.FeatureRecord) []string {
	var tokens []string
	for _, v := range r.Categorical {
		if v != "" {
			tokens = append(tokens, strings.ToLower(v))
		}
	}
	tokens = append(tokens, tokenize(r.Text)...)
	return tokens
}

// tokenOverlap is Jaccard similarity over the token sets of two texts.
func tokenOverlap(a, b string) float64 {
	fa := tokenize(a)
	fb := tokenize(b)
	return vectormath.JaccardSimilarity(fa, fb)
}

func tokenize(text string) []string {
	var tokens []string
	for _, t := range strings.Fields(strings.ToLower(text)) {
		t = strings.Trim(t, ".,;:!?()[]\"'")
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
