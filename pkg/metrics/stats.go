package metrics

import (
	"math"
	"sort"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
)

// Describe computes count, extremes, mean, median, sample stdev and the 90th,
// 95th and 99th percentiles. The input slice is not modified.
func Describe(values []float64) interfaces.Distribution {
	if len(values) == 0 {
		return interfaces.Distribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	mean := sum / float64(n)

	dist := interfaces.Distribution{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   mean,
		Median: Median(sorted),
		P90:    percentile(sorted, 0.90),
		P95:    percentile(sorted, 0.95),
		P99:    percentile(sorted, 0.99),
	}

	if n > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		dist.Stdev = math.Sqrt(sq / float64(n-1))
	}

	return dist
}

// Median returns the middle value of an ascending slice, averaging the two
// middle values for even lengths
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// percentile picks the value at index n*p of an ascending slice, clamped to the last element
func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
