// Package clustering groups historical outcomes into recurring patterns with
// K-means++ over engineered feature vectors.
package clustering

import (
	"math"
	"math/rand"
	"sort"

	"github.com/aristath/precedent/internal/domain"
	"github.com/aristath/precedent/internal/vectormath"
	"github.com/rs/zerolog"
)

// Pattern labels in the fixed five-way taxonomy, plus the degenerate label
// for too-small inputs.
const (
	LabelHighPerformance     = "high_performance"
	LabelStablePerformance   = "stable_performance"
	LabelModeratePerformance = "moderate_performance"
	LabelUnderperforming     = "underperforming"
	LabelHighRisk            = "high_risk"
	LabelInsufficientData    = "insufficient_data"
)

// Cluster is one recurring outcome pattern. Created fresh per clustering
// call; never mutated after creation.
type Cluster struct {
	Centroid   *domain.FeatureRecord `json:"centroid"`
	Members    []int                 `json:"members"`
	Label      string                `json:"label"`
	Confidence float64               `json:"confidence"`
}

// Result is the output of one clustering call.
type Result struct {
	Clusters   []Cluster `json:"clusters"`
	Assignment []int     `json:"assignment"`
}

// Service clusters outcome records.
type Service struct {
	rng *rand.Rand
	log zerolog.Logger
}

// NewService creates a clustering service. The caller injects the random
// source; tests pass a seeded one for reproducible clusterings.
func NewService(rng *rand.Rand, log zerolog.Logger) *Service {
	return &Service{
		rng: rng,
		log: log.With().Str("component", "outcome_clustering").Logger(),
	}
}

// Cluster groups outcomes into k = clamp(round(sqrt(n)), 2, 5) patterns.
// Fewer than 3 outcomes produce one degenerate insufficient_data cluster.
func (s *Service) Cluster(outcomes []*domain.FeatureRecord) Result {
	n := len(outcomes)
	if n == 0 {
		return Result{Clusters: []Cluster{}, Assignment: []int{}}
	}

	if n < 3 {
		members := make([]int, n)
		assignment := make([]int, n)
		for i := range members {
			members[i] = i
		}
		return Result{
			Clusters: []Cluster{{
				Centroid:   centroidRecord(outcomes, members),
				Members:    members,
				Label:      LabelInsufficientData,
				Confidence: 0.3,
			}},
			Assignment: assignment,
		}
	}

	points := make([][]float64, n)
	for i, outcome := range outcomes {
		points[i] = Project(outcome)
	}

	k := int(vectormath.Clamp(math.Round(math.Sqrt(float64(n))), 2, 5))
	_, assignment := kmeans(points, k, s.rng)

	clusters := make([]Cluster, 0, k)
	for c := 0; c < k; c++ {
		var members []int
		for i, a := range assignment {
			if a == c {
				members = append(members, i)
			}
		}
		if len(members) == 0 {
			continue
		}
		clusters = append(clusters, Cluster{
			Centroid:   centroidRecord(outcomes, members),
			Members:    members,
			Label:      labelCluster(outcomes, members),
			Confidence: clusterConfidence(points, members),
		})
	}

	// Remap assignments to the surviving (non-empty) cluster indices.
	remap := make(map[int]int, len(clusters))
	idx := 0
	for c := 0; c < k; c++ {
		if containsCluster(assignment, c) {
			remap[c] = idx
			idx++
		}
	}
	final := make([]int, n)
	for i, a := range assignment {
		final[i] = remap[a]
	}

	s.log.Debug().
		Int("outcomes", n).
		Int("k", k).
		Int("clusters", len(clusters)).
		Msg("Outcome clustering complete")

	return Result{Clusters: clusters, Assignment: final}
}

func containsCluster(assignment []int, c int) bool {
	for _, a := range assignment {
		if a == c {
			return true
		}
	}
	return false
}

// centroidRecord derives a representative FeatureRecord for a member set:
// component-wise mean for numeric attributes, mode for categorical ones.
func centroidRecord(outcomes []*domain.FeatureRecord, members []int) *domain.FeatureRecord {
	numericSums := map[string]float64{}
	numericCounts := map[string]int{}
	categoricalCounts := map[string]map[string]int{}

	for _, i := range members {
		for key, v := range outcomes[i].Numeric {
			numericSums[key] += v
			numericCounts[key]++
		}
		for key, v := range outcomes[i].Categorical {
			if v == "" {
				continue
			}
			if categoricalCounts[key] == nil {
				categoricalCounts[key] = map[string]int{}
			}
			categoricalCounts[key][v]++
		}
	}

	numeric := make(map[string]float64, len(numericSums))
	for key, sum := range numericSums {
		numeric[key] = sum / float64(numericCounts[key])
	}

	categorical := make(map[string]string, len(categoricalCounts))
	for key, counts := range categoricalCounts {
		values := make([]string, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		// Stable mode: ties break lexicographically
		sort.Strings(values)
		best, bestCount := "", 0
		for _, v := range values {
			if counts[v] > bestCount {
				best, bestCount = v, counts[v]
			}
		}
		categorical[key] = best
	}

	return &domain.FeatureRecord{Numeric: numeric, Categorical: categorical}
}

// labelCluster assigns the five-way pattern label from fixed thresholds on
// member means.
func labelCluster(outcomes []*domain.FeatureRecord, members []int) string {
	var success, profit, volatility []float64
	for _, i := range members {
		if x, ok := outcomes[i].Num(domain.AttrSuccessRate); ok {
			success = append(success, x)
		}
		if x, ok := outcomes[i].Num(domain.AttrProfitLoss); ok {
			profit = append(profit, x)
		}
		if x, ok := outcomes[i].Num(domain.AttrVolatility); ok {
			volatility = append(volatility, x)
		}
	}

	meanSuccess := vectormath.Mean(success)
	meanProfit := vectormath.Mean(profit)
	meanVolatility := vectormath.Mean(volatility)

	switch {
	case meanSuccess >= 0.7 && meanProfit > 0:
		return LabelHighPerformance
	case meanVolatility >= 0.6 && meanProfit <= 0:
		return LabelHighRisk
	case meanSuccess < 0.4 || meanProfit < 0:
		return LabelUnderperforming
	case meanSuccess >= 0.55 && meanVolatility < 0.4:
		return LabelStablePerformance
	default:
		return LabelModeratePerformance
	}
}

// clusterConfidence is the mean pairwise similarity among members, clamped
// to [0.3, 0.9]. Single-member clusters have no pairs and sit mid-range.
func clusterConfidence(points [][]float64, members []int) float64 {
	if len(members) < 2 {
		return 0.5
	}
	var sum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			d := vectormath.EuclideanDistance(points[members[i]], points[members[j]])
			sum += 1.0 / (1.0 + d)
			pairs++
		}
	}
	return vectormath.Clamp(sum/float64(pairs), 0.3, 0.9)
}
