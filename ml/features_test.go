package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeHistoryPadsFromFront(t *testing.T) {
	features := EncodeHistory([]int{1, 0}, 4, 2)
	assert.Equal(t, []float64{
		0, 0,
		0, 0,
		0, 1,
		1, 0,
	}, features)
}

func TestEncodeHistoryKeepsLastWindow(t *testing.T) {
	features := EncodeHistory([]int{2, 2, 0, 1, 2}, 3, 3)
	assert.Equal(t, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}, features)
}

func TestEncodeHistoryEmpty(t *testing.T) {
	features := EncodeHistory(nil, 8, 3)
	assert.Len(t, features, 24)
	for _, v := range features {
		assert.Zero(t, v)
	}
}

func TestEncodeHistorySkipsOutOfRange(t *testing.T) {
	features := EncodeHistory([]int{5, -1}, 2, 2)
	assert.Equal(t, []float64{0, 0, 0, 0}, features)
}

func TestOneHot(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 1}, OneHot(2, 3))
	assert.Equal(t, []float64{0, 0}, OneHot(4, 2))
}
