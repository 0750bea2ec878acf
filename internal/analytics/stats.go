package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// popVariance is the biased (population) variance of xs.
func popVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(xs, nil)
	return v
}

func popStdDev(xs []float64) float64 {
	return math.Sqrt(popVariance(xs))
}

// GiniCoefficient measures inequality of a non-negative distribution. It is 0
// for an empty set, an all-zero set or perfectly equal values.
func GiniCoefficient(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}
	if total == 0 {
		return 0
	}

	var weighted float64
	for i, v := range sorted {
		weighted += float64(2*(i+1)-n-1) * v
	}

	g := math.Abs(weighted / (float64(n) * total))
	if !isFinite(g) {
		return 0
	}
	return clamp(g, 0, 1)
}
