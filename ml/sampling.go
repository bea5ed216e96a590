package ml

import (
	"math"
	"math/rand/v2"
	"sort"
)

// RecencyDecay is the per-step weight decay used when sampling training
// examples: fewer options favour recent examples more strongly.
func RecencyDecay(optionCount int) float64 {
	return 0.8 + 0.15/float64(optionCount)
}

// RecencyWeights returns decay^age for n examples ordered oldest first, where
// the newest example has age 0.
func RecencyWeights(n int, decay float64) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = math.Pow(decay, float64(n-1-i))
	}
	return weights
}

// SampleWithReplacement draws k indices proportionally to weights using a
// cumulative-weight table and a binary search per draw.
func SampleWithReplacement(weights []float64, k int, rng *rand.Rand) []int {
	if len(weights) == 0 || k <= 0 {
		return nil
	}
	cumulative := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cumulative[i] = total
	}

	indices := make([]int, k)
	for i := range indices {
		target := rng.Float64() * total
		idx := sort.Search(len(cumulative), func(j int) bool {
			return cumulative[j] > target
		})
		if idx >= len(cumulative) {
			idx = len(cumulative) - 1
		}
		indices[i] = idx
	}
	return indices
}
