package clustering

import (
	"math"
	"math/rand"

	"github.com/aristath/precedent/internal/vectormath"
)

const (
	// convergenceTolerance is the summed centroid movement below which
	// Lloyd's iteration stops.
	convergenceTolerance = 1e-3
	maxIterations        = 100
)

// kmeans runs K-means++ initialization followed by Lloyd's algorithm.
// Returns the final centroids and the per-point cluster assignment. The
// caller owns the random source so runs can be made reproducible.
func kmeans(points [][]float64, k int, rng *rand.Rand) ([][]float64, []int) {
	centroids := initPlusPlus(points, k, rng)
	assignment := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		// Assignment step: nearest centroid by Euclidean distance
		for i, p := range points {
			assignment[i] = nearest(p, centroids)
		}

		// Update step: per-dimension means of assigned points. An empty
		// cluster keeps its previous centroid.
		moved := 0.0
		for c := range centroids {
			mean := clusterMean(points, assignment, c, len(centroids[c]))
			if mean == nil {
				continue
			}
			moved += vectormath.EuclideanDistance(centroids[c], mean)
			centroids[c] = mean
		}

		if moved < convergenceTolerance {
			break
		}
	}

	return centroids, assignment
}

// initPlusPlus picks the first centroid uniformly at random and each
// subsequent centroid with probability proportional to squared distance to
// the nearest already-chosen centroid, reducing the chance of two initial
// centroids landing in the same region.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	for len(centroids) < k {
		weights := make([]float64, len(points))
		var total float64
		for i, p := range points {
			d := distanceToNearest(p, centroids)
			weights[i] = d * d
			total += weights[i]
		}

		if total == 0 {
			// All points coincide with existing centroids; fall back to
			// uniform choice.
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}

		target := rng.Float64() * total
		var cumulative float64
		chosen := len(points) - 1
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}

	return centroids
}

func nearest(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := vectormath.EuclideanDistance(p, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func distanceToNearest(p []float64, centroids [][]float64) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		if d := vectormath.EuclideanDistance(p, c); d < best {
			best = d
		}
	}
	return best
}

// clusterMean returns the component-wise mean of the points assigned to
// cluster c, or nil when the cluster is empty.
func clusterMean(points [][]float64, assignment []int, c, dim int) []float64 {
	mean := make([]float64, dim)
	count := 0
	for i, p := range points {
		if assignment[i] != c {
			continue
		}
		for j := range mean {
			mean[j] += p[j]
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for j := range mean {
		mean[j] /= float64(count)
	}
	return mean
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
