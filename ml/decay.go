package ml

import "context"

const (
	DecayName          = "Decay-Weighted"
	DefaultDecayFactor = 0.9
)

// DecayPredictor keeps an exponentially decaying weight per option, so recent
// choices count more than old ones. Binary, like FrequencyPredictor.
type DecayPredictor struct {
	BasePredictor
	factor  float64
	weight0 float64
	weight1 float64
}

func NewDecayPredictor(factor float64) *DecayPredictor {
	if factor <= 0 || factor >= 1 {
		factor = DefaultDecayFactor
	}
	return &DecayPredictor{
		BasePredictor: NewBasePredictor(DecayName, "Weighs your recent choices more heavily"),
		factor:        factor,
	}
}

func (p *DecayPredictor) Predict(_ []int, _ int) int {
	if p.weight1 > p.weight0 {
		return 1
	}
	return 0
}

func (p *DecayPredictor) Update(_ context.Context, _ []int, actual int) error {
	p.weight0 *= p.factor
	p.weight1 *= p.factor
	if actual == 0 {
		p.weight0++
	} else {
		p.weight1++
	}
	return nil
}

func (p *DecayPredictor) Reset() {
	p.weight0 = 0
	p.weight1 = 0
}

func (p *DecayPredictor) Weights() (float64, float64) {
	return p.weight0, p.weight1
}

func (p *DecayPredictor) Factor() float64 {
	return p.factor
}
