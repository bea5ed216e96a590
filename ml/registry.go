package ml

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mindreader/config"
)

type Factory func() Predictor

// Registry owns one long-lived instance per predictor. Instances are shared by
// every game for the lifetime of the registry, which lets expensive warmup work
// survive predictor switches.
type Registry struct {
	predictors  map[string]Predictor
	order       []string
	defaultName string
	logger      *zap.Logger
}

func NewRegistry(cfg config.PredictorsConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		predictors:  make(map[string]Predictor),
		defaultName: MarkovName,
		logger:      logger,
	}

	r.Register(func() Predictor {
		return NewMarkovPredictor(cfg.Markov.Order, cfg.Markov.MaxContexts)
	})
	r.Register(func() Predictor { return NewFrequencyPredictor() })
	r.Register(func() Predictor { return NewDecayPredictor(cfg.Decay.Factor) })
	r.Register(func() Predictor {
		return NewNeuralPredictor(NeuralConfig{
			HistoryWindow: cfg.Neural.HistoryWindow,
			MinSamples:    cfg.Neural.MinSamples,
			BatchSize:     cfg.Neural.BatchSize,
			Epochs:        cfg.Neural.Epochs,
			BufferSize:    cfg.Neural.BufferSize,
			LearningRate:  cfg.Neural.LearningRate,
			Seed:          cfg.Neural.Seed,
		})
	})
	return r
}

// Register builds the singleton from factory, replacing any predictor of the same name.
func (r *Registry) Register(factory Factory) {
	p := factory()
	name := p.Name()
	if _, exists := r.predictors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.predictors[name] = p
	r.logger.Debug("registered predictor", zap.String("name", name))
}

// Create returns the named predictor freshly reset. Unknown names fall back to
// the default predictor.
func (r *Registry) Create(name string) Predictor {
	p, ok := r.predictors[name]
	if !ok {
		r.logger.Warn("unknown predictor, using default",
			zap.String("requested", name), zap.String("default", r.defaultName))
		p = r.Default()
	}
	p.Reset()
	return p
}

func (r *Registry) Get(name string) (Predictor, bool) {
	p, ok := r.predictors[name]
	return p, ok
}

func (r *Registry) Default() Predictor {
	return r.predictors[r.defaultName]
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) List() []Predictor {
	list := make([]Predictor, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.predictors[name])
	}
	return list
}

// Warmup runs every predictor's warmup hook and joins the failures.
func (r *Registry) Warmup(ctx context.Context) error {
	var errs error
	for _, name := range r.order {
		w, ok := r.predictors[name].(Warmer)
		if !ok {
			continue
		}
		if err := w.Warmup(ctx); err != nil {
			r.logger.Warn("predictor warmup failed", zap.String("name", name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		r.logger.Info("predictor warmed up", zap.String("name", name))
	}
	return errs
}
