package profiling

import (
	"math"
	"sort"
)

// DecayWeights returns n exponential recency weights with the given half-life,
// normalized to sum to 1. The last element is the most recent and heaviest.
func DecayWeights(n int, halfLife float64) []float64 {
	if n <= 0 {
		return nil
	}
	lambda := math.Ln2 / halfLife
	w := make([]float64, n)
	var sum float64
	for i := range w {
		w[i] = math.Exp(lambda * float64(i-(n-1)))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// weightedMean returns Σ w·x. Weights are assumed normalized.
func weightedMean(x, w []float64) float64 {
	var s float64
	for i := range x {
		s += x[i] * w[i]
	}
	return s
}

// varianceFloor keeps a constant window's std at the small positive value the
// tilt model was fitted on.
const varianceFloor = 1e-9

// weightedStd returns the weighted population standard deviation, floored at
// sqrt(varianceFloor).
func weightedStd(x, w []float64) float64 {
	mean := weightedMean(x, w)
	var v float64
	for i := range x {
		d := x[i] - mean
		v += w[i] * d * d
	}
	return math.Sqrt(math.Max(varianceFloor, v))
}

// Median returns the median of x without modifying it. Empty input yields 0.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	s := make([]float64, n)
	copy(s, x)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MAD returns the median absolute deviation around med.
func MAD(x []float64, med float64) float64 {
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// Entropy returns the Shannon entropy (base 2) of the key frequencies.
func Entropy(keys []string) float64 {
	if len(keys) == 0 {
		return 0
	}
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}
	total := float64(len(keys))
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	// A single repeated key yields -0.
	if h == 0 {
		return 0
	}
	return h
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
