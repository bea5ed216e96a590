package ml

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecencyDecay(t *testing.T) {
	assert.InDelta(t, 0.875, RecencyDecay(2), 1e-12)
	assert.InDelta(t, 0.825, RecencyDecay(6), 1e-12)
}

func TestRecencyWeightsNewestIsOne(t *testing.T) {
	weights := RecencyWeights(4, 0.5)
	assert.Equal(t, []float64{0.125, 0.25, 0.5, 1}, weights)
}

func TestSampleWithReplacementSkipsZeroWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	indices := SampleWithReplacement([]float64{0, 0, 1, 0}, 50, rng)
	require.Len(t, indices, 50)
	for _, idx := range indices {
		assert.Equal(t, 2, idx)
	}
}

func TestSampleWithReplacementFollowsWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	weights := RecencyWeights(10, 0.5)
	counts := make([]int, len(weights))
	const draws = 20000
	for _, idx := range SampleWithReplacement(weights, draws, rng) {
		counts[idx]++
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	newest := float64(counts[9]) / draws
	assert.InDelta(t, weights[9]/total, newest, 0.02)
	assert.Greater(t, counts[9], counts[8])
	assert.Greater(t, counts[8], counts[7])
}

func TestSampleWithReplacementEmpty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	assert.Nil(t, SampleWithReplacement(nil, 3, rng))
	assert.Nil(t, SampleWithReplacement([]float64{1}, 0, rng))
	assert.False(t, math.IsNaN(RecencyWeights(1, 0.9)[0]))
}
