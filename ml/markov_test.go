package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkovShortHistoryFallback(t *testing.T) {
	p := NewMarkovPredictor(3, 0)
	for optionCount := 2; optionCount <= 6; optionCount++ {
		p.Reset()
		for n := 0; n < 3; n++ {
			history := make([]int, n)
			assert.Equal(t, n%optionCount, p.Predict(history, optionCount))
		}
	}
}

func TestMarkovRoundScenario(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(3, 0)

	assert.Equal(t, 0, p.Predict([]int{}, 2))
	require.NoError(t, p.Update(ctx, []int{}, 1))
	assert.Zero(t, p.Contexts(), "update below order is a no-op")
	assert.Equal(t, 1, p.Predict([]int{1}, 2))
}

func TestMarkovLearnsContext(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(3, 0)
	history := []int{0, 2, 1}

	require.NoError(t, p.Update(ctx, history, 2))
	require.NoError(t, p.Update(ctx, history, 1))
	require.NoError(t, p.Update(ctx, history, 2))
	assert.Equal(t, 2, p.Predict([]int{1, 1, 0, 2, 1}, 3))

	// unseen context uses the length fallback
	assert.Equal(t, 4%3, p.Predict([]int{1, 1, 1, 1}, 3))
}

func TestMarkovTieTakesLowestIndex(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(2, 0)
	require.NoError(t, p.Update(ctx, []int{0, 1}, 2))
	require.NoError(t, p.Update(ctx, []int{0, 1}, 1))
	assert.Equal(t, 1, p.Predict([]int{0, 1}, 3))
}

func TestMarkovKeysAreUnambiguous(t *testing.T) {
	assert.NotEqual(t, contextKey([]int{1, 12}, 2), contextKey([]int{11, 2}, 2))
	assert.Equal(t, "0,1,2", contextKey([]int{5, 0, 1, 2}, 3))
}

func TestMarkovOptionCountChangeClears(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(1, 0)
	require.NoError(t, p.Update(ctx, []int{0}, 1))
	assert.Equal(t, 1, p.Predict([]int{0}, 2))
	assert.Equal(t, 1, p.Contexts())

	assert.Equal(t, 1%3, p.Predict([]int{0}, 3))
	assert.Zero(t, p.Contexts())
}

func TestMarkovBoundedContexts(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(1, 2)
	for c := 0; c < 4; c++ {
		require.NoError(t, p.Update(ctx, []int{c}, 0))
	}
	assert.Equal(t, 2, p.Contexts())
}

func TestMarkovResetIdempotent(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(1, 0)
	require.NoError(t, p.Update(ctx, []int{1}, 1))
	p.Reset()
	p.Reset()
	assert.Zero(t, p.Contexts())
	assert.Equal(t, 1, p.Predict([]int{1}, 2))
}

func TestMarkovIgnoresChoiceBeyondOptionCount(t *testing.T) {
	ctx := context.Background()
	p := NewMarkovPredictor(1, 0)
	assert.Equal(t, 1, p.Predict([]int{0}, 2))

	require.NoError(t, p.Update(ctx, []int{0}, 5))
	assert.Zero(t, p.Contexts())
	assert.Equal(t, 1, p.Predict([]int{0}, 2))

	require.NoError(t, p.Update(ctx, []int{0}, 0))
	assert.Equal(t, 1, p.Contexts())
	assert.Equal(t, 0, p.Predict([]int{0}, 2))
}
