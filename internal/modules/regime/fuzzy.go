package regime

import "math"

// Strictness tunes how selective a fuzzy regime match is.
type Strictness string

const (
	// Strict raises the score (score^1.5), admitting fewer candidates.
	Strict Strictness = "strict"
	// Normal uses the raw membership score.
	Normal Strictness = "normal"
	// Lenient applies sqrt(score), admitting more candidates.
	Lenient Strictness = "lenient"
)

// Characteristic names accepted by Match.
const (
	CharVolatility    = "volatility"
	CharMomentum      = "momentum"
	CharVolume        = "volume"
	CharTrendStrength = "trend_strength"
)

// trapezoid is a membership function with parameters [a,b,c,d]: membership is
// 0 outside [a,d], 1 on [b,c], and ramps linearly on [a,b] and [c,d].
type trapezoid struct {
	a, b, c, d float64
}

func (t trapezoid) membership(x float64) float64 {
	switch {
	case x <= t.a || x >= t.d:
		// Degenerate edges: a==b (or c==d) means a hard shoulder, and
		// membership at the plateau boundary is still 1.
		if x == t.a && t.a == t.b {
			return 1
		}
		if x == t.d && t.c == t.d {
			return 1
		}
		return 0
	case x >= t.b && x <= t.c:
		return 1
	case x < t.b:
		return (x - t.a) / (t.b - t.a)
	default:
		return (t.d - x) / (t.d - t.c)
	}
}

// memberships defines, per regime, the trapezoidal membership of each
// characteristic that distinguishes the regime. Characteristics not listed do
// not constrain the match.
var memberships = map[Label]map[string]trapezoid{
	HighVolatility: {
		CharVolatility: {0.60, 0.75, 1.00, 1.00},
	},
	LowVolatility: {
		CharVolatility: {0.00, 0.00, 0.20, 0.35},
	},
	TrendingUp: {
		CharMomentum:      {0.55, 0.70, 1.00, 1.00},
		CharTrendStrength: {0.50, 0.65, 1.00, 1.00},
	},
	TrendingDown: {
		CharMomentum:      {0.00, 0.00, 0.30, 0.45},
		CharTrendStrength: {0.50, 0.65, 1.00, 1.00},
	},
	Sideways: {
		CharTrendStrength: {0.00, 0.00, 0.20, 0.35},
		CharVolatility:    {0.00, 0.10, 0.40, 0.60},
	},
	Crisis: {
		CharVolatility: {0.70, 0.85, 1.00, 1.00},
		CharMomentum:   {0.00, 0.00, 0.20, 0.35},
	},
	Recovery: {
		CharMomentum:   {0.50, 0.65, 0.90, 1.00},
		CharVolatility: {0.30, 0.45, 0.70, 0.85},
	},
}

// Match scores how well a candidate's raw characteristics fit one named
// regime, as a continuous value in [0,1]. It averages the memberships of the
// characteristics the regime constrains and the candidate provides; a
// candidate providing none of them scores a neutral 0.5. Used by the
// regime-filtered search path, not the classifier.
func Match(label Label, characteristics map[string]float64, mode Strictness) float64 {
	traps, ok := memberships[label]
	if !ok {
		return 0
	}

	var sum float64
	var n int
	for char, trap := range traps {
		value, present := characteristics[char]
		if !present {
			continue
		}
		sum += trap.membership(value)
		n++
	}

	score := 0.5
	if n > 0 {
		score = sum / float64(n)
	}

	switch mode {
	case Strict:
		return math.Pow(score, 1.5)
	case Lenient:
		return math.Sqrt(score)
	default:
		return score
	}
}
