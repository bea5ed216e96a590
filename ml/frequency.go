package ml

import "context"

const FrequencyName = "Frequency"

// FrequencyPredictor counts how often each option was chosen. It only knows two
// options: any choice other than 0 is counted as option 1.
type FrequencyPredictor struct {
	BasePredictor
	count0 int
	count1 int
}

func NewFrequencyPredictor() *FrequencyPredictor {
	return &FrequencyPredictor{
		BasePredictor: NewBasePredictor(FrequencyName, "Predicts your most frequently chosen option"),
	}
}

func (p *FrequencyPredictor) Predict(_ []int, _ int) int {
	if p.count1 > p.count0 {
		return 1
	}
	return 0
}

func (p *FrequencyPredictor) Update(_ context.Context, _ []int, actual int) error {
	if actual == 0 {
		p.count0++
	} else {
		p.count1++
	}
	return nil
}

func (p *FrequencyPredictor) Reset() {
	p.count0 = 0
	p.count1 = 0
}

func (p *FrequencyPredictor) Counts() (int, int) {
	return p.count0, p.count1
}
