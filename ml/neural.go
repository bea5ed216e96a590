package ml

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

const (
	NeuralName         = "Neural Network"
	defaultOptionCount = 2
	minNeuralHistory   = 2
)

var (
	ErrTrainingDiverged = errors.New("training diverged")
	ErrChoiceOutOfRange = errors.New("choice out of range")
)

type NeuralConfig struct {
	HistoryWindow int
	MinSamples    int
	BatchSize     int
	Epochs        int
	BufferSize    int
	LearningRate  float64
	// Seed fixes weight initialisation and batch sampling; 0 picks a random seed.
	Seed uint64
}

func DefaultNeuralConfig() NeuralConfig {
	return NeuralConfig{
		HistoryWindow: 8,
		MinSamples:    4,
		BatchSize:     8,
		Epochs:        2,
		BufferSize:    200,
		LearningRate:  0.01,
	}
}

// NeuralPredictor is a small feed-forward classifier over the one-hot encoded
// recent history. The model is sized for one option count; when the count
// changes the model and all buffered examples are thrown away and rebuilt.
//
// mu guards the model so that Warmup can run in the background while the
// game starts predicting.
type NeuralPredictor struct {
	BasePredictor
	cfg NeuralConfig
	rng *rand.Rand

	mu          sync.Mutex
	model       *network
	optionCount int
	examples    *exampleRing
	warmed      bool

	processing atomic.Bool
}

func NewNeuralPredictor(cfg NeuralConfig) *NeuralPredictor {
	def := DefaultNeuralConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &NeuralPredictor{
		BasePredictor: NewBasePredictor(NeuralName, "A machine learning model that learns your patterns"),
		cfg:           cfg,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		optionCount:   defaultOptionCount,
		examples:      newExampleRing(cfg.BufferSize),
	}
}

func (p *NeuralPredictor) Predict(history []int, optionCount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ensureModel(optionCount)
	if len(history) < minNeuralHistory {
		return fallbackChoice(len(history), optionCount)
	}
	probs := p.model.predict(EncodeHistory(history, p.cfg.HistoryWindow, optionCount))
	return argmax(probs)
}

func (p *NeuralPredictor) Update(ctx context.Context, history []int, actual int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	optionCount := p.optionCount
	if actual < 0 || actual >= optionCount {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrChoiceOutOfRange, actual, optionCount)
	}
	if len(history) == 0 {
		return nil
	}

	p.examples.push(TrainingExample{
		Input: EncodeHistory(history, p.cfg.HistoryWindow, optionCount),
		Label: actual,
	})
	if p.examples.len() < p.cfg.MinSamples {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.train(optionCount)
}

func (p *NeuralPredictor) train(optionCount int) error {
	p.processing.Store(true)
	defer p.processing.Store(false)

	p.ensureModel(optionCount)

	size := p.examples.len()
	batchSize := min(p.cfg.BatchSize, size)
	weights := RecencyWeights(size, RecencyDecay(optionCount))
	indices := SampleWithReplacement(weights, batchSize, p.rng)

	inputs := make([][]float64, len(indices))
	labels := make([]int, len(indices))
	for i, idx := range indices {
		example := p.examples.at(idx)
		inputs[i] = example.Input
		labels[i] = example.Label
	}

	if _, err := p.model.fit(inputs, labels, p.cfg.Epochs); err != nil {
		if errors.Is(err, ErrTrainingDiverged) {
			p.model.initWeights()
		}
		return fmt.Errorf("neural fit: %w", err)
	}
	return nil
}

// ensureModel moves the predictor to Built(optionCount), discarding everything
// learned under a different option count. Caller holds mu.
func (p *NeuralPredictor) ensureModel(optionCount int) {
	if optionCount != p.optionCount {
		p.model = nil
		p.examples.clear()
		p.processing.Store(false)
		p.optionCount = optionCount
	}
	if p.model == nil {
		p.model = newNetwork(p.cfg.HistoryWindow*optionCount, optionCount, p.cfg.LearningRate, p.rng)
	}
}

// Reset drops the buffered examples but keeps the model, so a warmed-up model
// stays resident between games.
func (p *NeuralPredictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.examples.clear()
	p.processing.Store(false)
}

// Warmup builds the model for the current option count and runs one dummy
// forward pass. Calling it again is a no-op.
func (p *NeuralPredictor) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.warmed && p.model != nil {
		return nil
	}
	p.ensureModel(p.optionCount)
	p.model.predict(make([]float64, p.model.inputSize))
	p.warmed = true
	return nil
}

func (p *NeuralPredictor) IsProcessing() bool {
	return p.processing.Load()
}

func (p *NeuralPredictor) BufferLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.examples.len()
}

func (p *NeuralPredictor) OptionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.optionCount
}

func (p *NeuralPredictor) ModelBuilt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model != nil
}

// LiveBuffers reports matrices currently leased from the model's workspace.
func (p *NeuralPredictor) LiveBuffers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return 0
	}
	return p.model.ws.live
}
