package ml

import (
	"context"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	MarkovName         = "Markov Chain"
	DefaultMarkovOrder = 3
	DefaultMaxContexts = 4096
)

// MarkovPredictor maps the last `order` choices to counts of the choice that
// followed them.
type MarkovPredictor struct {
	BasePredictor
	order       int
	transitions *lru.Cache[string, []int]
	// option count seen by the last Predict call, 0 until then
	optionCount int
}

func NewMarkovPredictor(order, maxContexts int) *MarkovPredictor {
	if order <= 0 {
		order = DefaultMarkovOrder
	}
	if maxContexts <= 0 {
		maxContexts = DefaultMaxContexts
	}
	transitions, err := lru.New[string, []int](maxContexts)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &MarkovPredictor{
		BasePredictor: NewBasePredictor(MarkovName, "Predicts based on patterns in your recent choices"),
		order:         order,
		transitions:   transitions,
	}
}

func (p *MarkovPredictor) Predict(history []int, optionCount int) int {
	if p.optionCount != 0 && p.optionCount != optionCount {
		p.transitions.Purge()
	}
	p.optionCount = optionCount

	if len(history) < p.order {
		return fallbackChoice(len(history), optionCount)
	}
	counts, ok := p.transitions.Get(contextKey(history, p.order))
	if !ok {
		return fallbackChoice(len(history), optionCount)
	}

	prediction := 0
	maxCount := -1
	for i := 0; i < optionCount; i++ {
		count := 0
		if i < len(counts) {
			count = counts[i]
		}
		if count > maxCount {
			maxCount = count
			prediction = i
		}
	}
	return prediction
}

func (p *MarkovPredictor) Update(_ context.Context, history []int, actual int) error {
	if len(history) < p.order || actual < 0 {
		return nil
	}
	// counts never grow past the option count Predict last saw
	if p.optionCount > 0 && actual >= p.optionCount {
		return nil
	}
	key := contextKey(history, p.order)
	counts, _ := p.transitions.Get(key)
	if actual >= len(counts) {
		grown := make([]int, actual+1)
		copy(grown, counts)
		counts = grown
	}
	counts[actual]++
	p.transitions.Add(key, counts)
	return nil
}

func (p *MarkovPredictor) Reset() {
	p.transitions.Purge()
	p.optionCount = 0
}

func (p *MarkovPredictor) Order() int {
	return p.order
}

// Contexts returns how many distinct contexts have been seen.
func (p *MarkovPredictor) Contexts() int {
	return p.transitions.Len()
}

func contextKey(history []int, order int) string {
	window := history[len(history)-order:]
	parts := make([]string, len(window))
	for i, choice := range window {
		parts[i] = strconv.Itoa(choice)
	}
	return strings.Join(parts, ",")
}
