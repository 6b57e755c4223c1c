// Package vectormath provides the shared numeric-vector primitives used by
// the similarity, clustering, ensemble and optimization engines.
package vectormath

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EuclideanDistance returns the L2 distance between two equal-length vectors.
// Mismatched lengths are truncated to the shorter vector - partial data is
// the norm in this system and must never abort a computation.
func EuclideanDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return floats.Distance(a[:n], b[:n], 2)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// mapped from [-1,1] as-is. Zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	a, b = a[:n], b[:n]
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// JaccardSimilarity returns |A∩B| / |A∪B| over two token sets.
// Two empty sets are considered identical.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Correlation returns the Pearson correlation of two equal-length series.
// Series shorter than two points, or with zero variance, correlate at 0.
func Correlation(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 2 {
		return 0
	}
	r := stat.Correlation(a[:n], b[:n], nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Variance returns the population variance, 0 for fewer than two points.
func Variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := stat.Mean(xs, nil)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation.
func StdDev(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// WeightedMean returns Σwᵢxᵢ / Σwᵢ. Zero total weight yields 0.
func WeightedMean(xs, weights []float64) float64 {
	n := min(len(xs), len(weights))
	if n == 0 {
		return 0
	}
	var sum, wsum float64
	for i := 0; i < n; i++ {
		sum += weights[i] * xs[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// WeightedVariance returns the weighted population variance Σwᵢ(xᵢ-μ)² / Σwᵢ
// around the weighted mean.
func WeightedVariance(xs, weights []float64) float64 {
	n := min(len(xs), len(weights))
	if n == 0 {
		return 0
	}
	mu := WeightedMean(xs, weights)
	var sum, wsum float64
	for i := 0; i < n; i++ {
		d := xs[i] - mu
		sum += weights[i] * d * d
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// Entropy returns the Shannon entropy (in nats) of a value distribution
// built by normalizing xs into a probability vector. Non-positive values are
// ignored.
func Entropy(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		if x > 0 {
			total += x
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, x := range xs {
		if x <= 0 {
			continue
		}
		p := x / total
		h -= p * math.Log(p)
	}
	return h
}

// Normalize min-max scales xs into [0,1]. A constant series maps to all 0.5.
func Normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo := floats.Min(xs)
	hi := floats.Max(xs)
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, x := range xs {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 bounds x to [0,1].
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}
