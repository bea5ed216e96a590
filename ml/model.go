package ml

import "context"

// Predictor guesses the player's next choice from the choices made so far.
//
// Predict must not modify history and always returns a value in [0, optionCount).
// Update receives the history as it was before actual was chosen and returns once
// any training it started has finished.
type Predictor interface {
	Name() string
	Description() string
	Predict(history []int, optionCount int) int
	Update(ctx context.Context, history []int, actual int) error
	Reset()
	IsProcessing() bool
}

// Warmer is implemented by predictors with an expensive first use.
type Warmer interface {
	Warmup(ctx context.Context) error
}

type BasePredictor struct {
	name        string
	description string
}

func NewBasePredictor(name, description string) BasePredictor {
	return BasePredictor{name: name, description: description}
}

func (b *BasePredictor) Name() string {
	return b.name
}

func (b *BasePredictor) Description() string {
	return b.description
}

func (b *BasePredictor) IsProcessing() bool {
	return false
}

func fallbackChoice(historyLen, optionCount int) int {
	if optionCount <= 0 {
		return 0
	}
	return historyLen % optionCount
}

// argmax returns the lowest index holding the maximum value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
