// Package game 回合控制器: 预测 -> 揭晓 -> 计分 -> 更新
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mindreader/config"
	"mindreader/db"
	"mindreader/ml"
)

// PredictorPreferenceKey 上次选择的预测器名称
const PredictorPreferenceKey = "selectedPredictor"

var (
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrInvalidOptionCount = errors.New("invalid option count")
)

// Store 对局需要的持久化能力
type Store interface {
	LoadPreference(ctx context.Context, key string) (string, bool, error)
	SavePreference(ctx context.Context, key, value string) error
	SaveRound(ctx context.Context, record db.RoundRecord) error
}

// Recorder 对局指标
type Recorder interface {
	ObserveRound(predictor string, correct bool)
	ObserveUpdate(predictor string, duration time.Duration, err error)
	SetProcessing(predictor string, busy bool)
}

// Round 一个回合的结果, 生成后不再修改
type Round struct {
	UserChoice int  `json:"user_choice"`
	Prediction int  `json:"prediction"`
	Correct    bool `json:"correct"`
}

// State 对局快照
type State struct {
	SessionID            string   `json:"session_id"`
	History              []int    `json:"history"`
	Rounds               []Round  `json:"rounds"`
	HumanScore           int      `json:"human_score"`
	MachineScore         int      `json:"machine_score"`
	Predictor            string   `json:"predictor"`
	PredictorDescription string   `json:"predictor_description"`
	AvailablePredictors  []string `json:"available_predictors"`
	OptionCount          int      `json:"option_count"`
	Prediction           int      `json:"prediction"`
	Processing           bool     `json:"processing"`
}

// Game 回合控制器
//
// 同一预测器的 Predict/Update 只在持有 mu 时调用, 保证前一回合的训练完成后才开始下一次预测。
type Game struct {
	mu          sync.Mutex
	registry    *ml.Registry
	store       Store
	recorder    Recorder
	logger      *zap.Logger
	predictor   ml.Predictor
	optionCount int
	sessionID   string

	history      []int
	rounds       []Round
	humanScore   int
	machineScore int
	prediction   int

	processing atomic.Bool
}

// NewGame 创建对局; 若存储中记录了已知的预测器名称则优先使用
func NewGame(ctx context.Context, registry *ml.Registry, store Store, cfg config.GameConfig, logger *zap.Logger) (*Game, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.OptionCount < config.MinOptions || cfg.OptionCount > config.MaxOptions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOptionCount, cfg.OptionCount)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Game{
		registry:    registry,
		store:       store,
		logger:      logger,
		optionCount: cfg.OptionCount,
	}

	name := cfg.DefaultPredictor
	if store != nil {
		saved, ok, err := store.LoadPreference(ctx, PredictorPreferenceKey)
		if err != nil {
			logger.Warn("failed to load predictor preference", zap.Error(err))
		} else if ok {
			if _, known := registry.Get(saved); known {
				name = saved
			}
		}
	}

	g.predictor = registry.Create(name)
	g.clearSession()
	logger.Info("game ready",
		zap.String("predictor", g.predictor.Name()),
		zap.Int("option_count", g.optionCount))
	return g, nil
}

// SetRecorder 设置指标记录器
func (g *Game) SetRecorder(recorder Recorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorder = recorder
}

// Play 揭晓玩家的选择并完成一个回合
func (g *Game) Play(ctx context.Context, choice int) (Round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if choice < 0 || choice >= g.optionCount {
		return Round{}, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidChoice, choice, g.optionCount)
	}

	round := Round{
		UserChoice: choice,
		Prediction: g.prediction,
		Correct:    g.prediction == choice,
	}
	name := g.predictor.Name()

	// 训练期间界面应禁用输入
	g.setProcessing(name, true)
	start := time.Now()
	err := g.predictor.Update(ctx, g.history, choice)
	g.setProcessing(name, false)
	if g.recorder != nil {
		g.recorder.ObserveUpdate(name, time.Since(start), err)
	}
	if err != nil {
		g.logger.Warn("predictor update failed", zap.String("predictor", name), zap.Error(err))
	}

	g.history = append(g.history, choice)
	g.rounds = append(g.rounds, round)
	if round.Correct {
		g.machineScore++
	} else {
		g.humanScore++
	}
	g.prediction = g.predictor.Predict(g.history, g.optionCount)

	if g.recorder != nil {
		g.recorder.ObserveRound(name, round.Correct)
	}
	if g.store != nil {
		record := db.RoundRecord{
			SessionID:   g.sessionID,
			Predictor:   name,
			OptionCount: g.optionCount,
			UserChoice:  round.UserChoice,
			Prediction:  round.Prediction,
			Correct:     round.Correct,
		}
		if err := g.store.SaveRound(ctx, record); err != nil {
			g.logger.Warn("failed to save round", zap.Error(err))
		}
	}

	g.logger.Debug("round played",
		zap.String("predictor", name),
		zap.Int("choice", choice),
		zap.Int("prediction", round.Prediction),
		zap.Bool("correct", round.Correct),
		zap.Int("next_prediction", g.prediction))
	return round, nil
}

// SelectPredictor 切换预测器并开始新的对局; 未知名称回退到默认预测器
func (g *Game) SelectPredictor(ctx context.Context, name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.predictor = g.registry.Create(name)
	if g.store != nil {
		if err := g.store.SavePreference(ctx, PredictorPreferenceKey, g.predictor.Name()); err != nil {
			g.logger.Warn("failed to save predictor preference", zap.Error(err))
		}
	}
	g.clearSession()
	g.logger.Info("predictor selected", zap.String("requested", name), zap.String("predictor", g.predictor.Name()))
	return g.predictor.Name()
}

// Reset 清空对局和预测器状态
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.predictor.Reset()
	g.clearSession()
}

// SetOptionCount 修改选项数; 已学到的模式全部失效
func (g *Game) SetOptionCount(n int) error {
	if n < config.MinOptions || n > config.MaxOptions {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidOptionCount, n, config.MinOptions, config.MaxOptions)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.optionCount = n
	g.predictor.Reset()
	g.clearSession()
	g.logger.Info("option count changed", zap.Int("option_count", n))
	return nil
}

// IsProcessing 预测器是否正在训练; 不等待当前回合
func (g *Game) IsProcessing() bool {
	return g.processing.Load()
}

// State 返回对局快照
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return State{
		SessionID:            g.sessionID,
		History:              append([]int{}, g.history...),
		Rounds:               append([]Round{}, g.rounds...),
		HumanScore:           g.humanScore,
		MachineScore:         g.machineScore,
		Predictor:            g.predictor.Name(),
		PredictorDescription: g.predictor.Description(),
		AvailablePredictors:  g.registry.Names(),
		OptionCount:          g.optionCount,
		Prediction:           g.prediction,
		Processing:           g.processing.Load(),
	}
}

// clearSession 历史和分数一起清零; 调用方持有 mu
func (g *Game) clearSession() {
	g.sessionID = uuid.NewString()
	g.history = nil
	g.rounds = nil
	g.humanScore = 0
	g.machineScore = 0
	g.prediction = g.predictor.Predict(g.history, g.optionCount)
}

func (g *Game) setProcessing(predictor string, busy bool) {
	g.processing.Store(busy)
	if g.recorder != nil {
		g.recorder.SetProcessing(predictor, busy)
	}
}
