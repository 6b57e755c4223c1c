// Package analogs is the top-level "find analogs" entry point: it ranks
// historical candidates against the current state, filters by regime when
// asked, and clusters the top outcomes into recurring patterns.
package analogs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/precedent/internal/cache"
	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/fallback"
	"github.com/aristath/precedent/internal/modules/clustering"
	"github.com/aristath/precedent/internal/modules/regime"
	"github.com/aristath/precedent/internal/modules/similarity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrMalformedQuery is returned when a query is structurally unusable.
// Everything below this boundary degrades to neutral defaults instead of
// erroring; malformed input is the one failure a caller must see.
var ErrMalformedQuery = errors.New("malformed analog query")

// Query defaults.
const (
	DefaultMaxResults     = 10
	DefaultMinRegimeMatch = 0.5
)

// Query describes the current state and the candidate pool to search.
type Query struct {
	Current       *domain.FeatureRecord        `json:"current"`
	Candidates    []*domain.FeatureRecord      `json:"candidates"`
	MaxResults    int                          `json:"max_results,omitempty"`
	MinSimilarity float64                      `json:"min_similarity,omitempty"`
	Weights       *similarity.DimensionWeights `json:"weights,omitempty"`

	// Optional regime filter: candidates must fuzzily match this regime.
	Regime         regime.Label      `json:"regime,omitempty"`
	Strictness     regime.Strictness `json:"strictness,omitempty"`
	MinRegimeMatch float64           `json:"min_regime_match,omitempty"`
}

// RankedScenario is a query-scoped projection of one historical record:
// its similarity breakdown, the multi-algorithm combined score, and the
// weights that determined its position in the ranking.
type RankedScenario struct {
	Record     *domain.FeatureRecord    `json:"record"`
	Breakdown  similarity.Breakdown     `json:"breakdown"`
	Combined   similarity.CombinedScore `json:"combined"`
	Recency    float64                  `json:"recency"`
	Confidence float64                  `json:"confidence"`
	Uniqueness float64                  `json:"uniqueness"`
	Rank       float64                  `json:"rank"` // similarity × confidence × recency
}

// Response is the result of one analog search.
type Response struct {
	QueryID   string            `json:"query_id"`
	Scenarios []RankedScenario  `json:"scenarios"`
	Patterns  clustering.Result `json:"patterns"`
}

// cachedResult is the cache payload: everything except the per-call query ID.
type cachedResult struct {
	Scenarios []RankedScenario  `msgpack:"scenarios"`
	Patterns  clustering.Result `msgpack:"patterns"`
}

// Service orchestrates the similarity, regime and clustering engines.
type Service struct {
	engine   *similarity.Engine
	combiner *similarity.Combiner
	clusters *clustering.Service
	cache    *cache.Cache // optional
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates the analog search service. cache may be nil.
func NewService(engine *similarity.Engine, combiner *similarity.Combiner, clusters *clustering.Service, c *cache.Cache, log zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		combiner: combiner,
		clusters: clusters,
		cache:    c,
		now:      time.Now,
		log:      log.With().Str("component", "analog_search").Logger(),
	}
}

// FindAnalogs ranks the candidate pool against the current state and clusters
// the selected outcomes. Candidates that fail to score degrade to neutral
// values; only a malformed query or a genuinely unexpected failure errors.
func (s *Service) FindAnalogs(ctx context.Context, q Query) (*Response, error) {
	var resp *Response
	err := fallback.Guard("find_analogs", func() error {
		if err := q.validate(); err != nil {
			return err
		}
		resp = s.search(ctx, q.withDefaults())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (q Query) validate() error {
	if q.Current == nil {
		return fmt.Errorf("%w: current state record is required", ErrMalformedQuery)
	}
	if len(q.Current.Numeric) == 0 && len(q.Current.Categorical) == 0 && q.Current.Text == "" {
		return fmt.Errorf("%w: current state record carries no attributes", ErrMalformedQuery)
	}
	if q.MinSimilarity < 0 || q.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity %f outside [0,1]", ErrMalformedQuery, q.MinSimilarity)
	}
	if q.Regime != "" {
		known := false
		for _, label := range regime.Labels() {
			if q.Regime == label {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown regime %q", ErrMalformedQuery, q.Regime)
		}
	}
	return nil
}

func (q Query) withDefaults() Query {
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.MinRegimeMatch <= 0 {
		q.MinRegimeMatch = DefaultMinRegimeMatch
	}
	if q.Strictness == "" {
		q.Strictness = regime.Normal
	}
	return q
}

func (s *Service) search(ctx context.Context, q Query) *Response {
	cacheKey := s.cacheKey(q)
	if cacheKey != "" {
		var cached cachedResult
		if s.cache.Get(cacheKey, &cached) {
			s.log.Debug().Str("key", cacheKey).Msg("Cache hit")
			return &Response{
				QueryID:   uuid.NewString(),
				Scenarios: cached.Scenarios,
				Patterns:  cached.Patterns,
			}
		}
	}

	now := s.now()
	candidates := q.Candidates
	if q.Regime != "" {
		candidates = s.filterByRegime(candidates, q.Regime, q.Strictness, q.MinRegimeMatch)
	}

	scenarios := make([]RankedScenario, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		sc := s.scoreCandidate(ctx, now, q, candidate)
		if sc.Breakdown.Overall < q.MinSimilarity {
			continue
		}
		scenarios = append(scenarios, sc)
	}

	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].Rank > scenarios[j].Rank
	})
	if len(scenarios) > q.MaxResults {
		scenarios = scenarios[:q.MaxResults]
	}

	s.assignUniqueness(now, scenarios)

	records := make([]*domain.FeatureRecord, len(scenarios))
	for i, sc := range scenarios {
		records[i] = sc.Record
	}
	patterns := s.clusters.Cluster(records)

	if cacheKey != "" {
		s.cache.Set(cacheKey, cachedResult{Scenarios: scenarios, Patterns: patterns})
	}

	s.log.Info().
		Int("candidates", len(q.Candidates)).
		Int("selected", len(scenarios)).
		Int("patterns", len(patterns.Clusters)).
		Msg("Analog search complete")

	return &Response{
		QueryID:   uuid.NewString(),
		Scenarios: scenarios,
		Patterns:  patterns,
	}
}

// scoreCandidate builds the full ranked projection for one candidate.
// Confidence blends the record's data quality with the tightness of the
// combined-score confidence interval.
func (s *Service) scoreCandidate(ctx context.Context, now time.Time, q Query, candidate *domain.FeatureRecord) RankedScenario {
	breakdown := s.engine.Score(now, q.Current, candidate, q.Weights)
	combined := s.combiner.Combine(ctx, now, q.Current, candidate)
	recency := s.engine.Recency(now, candidate)

	ciWidth := combined.CIHigh - combined.CILow
	confidence := 0.5*candidate.Quality() + 0.5*(1-ciWidth)
	if confidence < 0 {
		confidence = 0
	}

	return RankedScenario{
		Record:     candidate,
		Breakdown:  breakdown,
		Combined:   combined,
		Recency:    recency,
		Confidence: confidence,
		Rank:       breakdown.Overall * confidence * recency,
	}
}

// assignUniqueness scores how distinct each selected scenario is from the
// rest of the selection: 1 minus its mean similarity to the others. A lone
// scenario is maximally unique.
func (s *Service) assignUniqueness(now time.Time, scenarios []RankedScenario) {
	if len(scenarios) < 2 {
		for i := range scenarios {
			scenarios[i].Uniqueness = 1
		}
		return
	}

	for i := range scenarios {
		var sum float64
		for j := range scenarios {
			if i == j {
				continue
			}
			sum += s.engine.Score(now, scenarios[i].Record, scenarios[j].Record, nil).Overall
		}
		scenarios[i].Uniqueness = 1 - sum/float64(len(scenarios)-1)
		if scenarios[i].Uniqueness < 0 {
			scenarios[i].Uniqueness = 0
		}
	}
}

// filterByRegime keeps candidates whose raw characteristics fuzzily match the
// requested regime at or above the threshold.
func (s *Service) filterByRegime(candidates []*domain.FeatureRecord, label regime.Label, mode regime.Strictness, threshold float64) []*domain.FeatureRecord {
	kept := make([]*domain.FeatureRecord, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if regime.Match(label, regimeCharacteristics(c), mode) >= threshold {
			kept = append(kept, c)
		}
	}
	s.log.Debug().
		Str("regime", string(label)).
		Str("strictness", string(mode)).
		Int("in", len(candidates)).
		Int("kept", len(kept)).
		Msg("Applied regime filter")
	return kept
}

// regimeCharacteristics maps a record's numeric attributes onto the fuzzy
// matcher's characteristic names.
func regimeCharacteristics(r *domain.FeatureRecord) map[string]float64 {
	chars := make(map[string]float64, 4)
	if v, ok := r.Num(domain.AttrVolatility); ok {
		chars[regime.CharVolatility] = v
	}
	if v, ok := r.Num(domain.AttrMomentum); ok {
		chars[regime.CharMomentum] = v
	}
	if v, ok := r.Num(domain.AttrVolumeRatio); ok {
		chars[regime.CharVolume] = v
	}
	if v, ok := r.Num(domain.AttrTrendStrength); ok {
		chars[regime.CharTrendStrength] = v
	}
	return chars
}

// cacheKey returns the query's cache key, or "" when caching is disabled or
// the query cannot be serialized.
func (s *Service) cacheKey(q Query) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.Key("analogs", q)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to derive cache key, skipping cache")
		return ""
	}
	return key
}
