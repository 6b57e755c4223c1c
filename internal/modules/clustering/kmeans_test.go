package clustering

import (
	"math/rand"
	"testing"

	"github.com/aristath/precedent/internal/vectormath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic generates n points around each of the given generator centers.
func synthetic(rng *rand.Rand, centers [][]float64, n int, noise float64) [][]float64 {
	var points [][]float64
	for _, c := range centers {
		for i := 0; i < n; i++ {
			p := make([]float64, len(c))
			for j := range p {
				p[j] = c[j] + (rng.Float64()-0.5)*2*noise
			}
			points = append(points, p)
		}
	}
	return points
}

func TestKMeansRecoversWellSeparatedCentroids(t *testing.T) {
	centers := [][]float64{
		{0, 0, 0},
		{10, 10, 10},
		{-10, 10, -10},
	}

	recovered := 0
	const runs = 40
	for seed := int64(0); seed < runs; seed++ {
		rng := rand.New(rand.NewSource(seed))
		points := synthetic(rng, centers, 50, 0.5)

		centroids, assignment := kmeans(points, len(centers), rng)
		require.Len(t, centroids, len(centers))
		require.Len(t, assignment, len(points))

		// Each true generator must have a centroid within tolerance
		ok := true
		for _, c := range centers {
			best := vectormath.EuclideanDistance(c, centroids[0])
			for _, got := range centroids[1:] {
				if d := vectormath.EuclideanDistance(c, got); d < best {
					best = d
				}
			}
			if best > 1.0 {
				ok = false
			}
		}
		if ok {
			recovered++
		}
	}
	assert.GreaterOrEqual(t, recovered, runs*95/100)
}

func TestKMeansSinglePointPerCluster(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := [][]float64{{0, 0}, {100, 100}}
	centroids, assignment := kmeans(points, 2, rng)
	require.Len(t, centroids, 2)
	assert.NotEqual(t, assignment[0], assignment[1])
}

func TestKMeansIdenticalPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	centroids, assignment := kmeans(points, 2, rng)
	// Degenerate input must not panic or loop; everything lands somewhere
	require.Len(t, centroids, 2)
	require.Len(t, assignment, 4)
}

func TestInitPlusPlusSpreadsCentroids(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := synthetic(rng, [][]float64{{0, 0}, {50, 50}}, 30, 0.1)

	spreadCount := 0
	for i := 0; i < 50; i++ {
		centroids := initPlusPlus(points, 2, rng)
		if vectormath.EuclideanDistance(centroids[0], centroids[1]) > 10 {
			spreadCount++
		}
	}
	// Squared-distance weighting makes same-region picks very unlikely
	assert.Greater(t, spreadCount, 45)
}
