package features

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// valid drops NaN samples.
func valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func mean(xs []float64) (float64, bool) {
	v := valid(xs)
	if len(v) == 0 {
		return 0, false
	}
	return stat.Mean(v, nil), true
}

func first(xs []float64) (float64, bool) {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return x, true
		}
	}
	return 0, false
}

func last(xs []float64) (float64, bool) {
	for i := len(xs) - 1; i >= 0; i-- {
		if !math.IsNaN(xs[i]) {
			return xs[i], true
		}
	}
	return 0, false
}

func lastPositive(xs []float64) (float64, bool) {
	v, ok := last(xs)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// meanDelta is the mean of consecutive differences, i.e. (last-first)/(n-1).
func meanDelta(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
