// Package config 加载和校验 config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// MinOptions 最少选项数
	MinOptions = 2
	// MaxOptions 最多选项数
	MaxOptions = 6
)

// Config 应用配置
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Game       GameConfig       `yaml:"game"`
	Predictors PredictorsConfig `yaml:"predictors"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      float64       `yaml:"rate_limit"` // 每秒请求数, 0 表示不限制
	RateBurst      int           `yaml:"rate_burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

// GameConfig 对局配置
type GameConfig struct {
	OptionCount      int    `yaml:"option_count"`
	DefaultPredictor string `yaml:"default_predictor"`
	Language         string `yaml:"language"`
	Warmup           bool   `yaml:"warmup"`
}

// PredictorsConfig 预测器参数
type PredictorsConfig struct {
	Markov MarkovConfig `yaml:"markov"`
	Decay  DecayConfig  `yaml:"decay"`
	Neural NeuralConfig `yaml:"neural"`
}

// MarkovConfig 马尔可夫链参数
type MarkovConfig struct {
	Order       int `yaml:"order"`
	MaxContexts int `yaml:"max_contexts"`
}

// DecayConfig 衰减加权参数
type DecayConfig struct {
	Factor float64 `yaml:"factor"`
}

// NeuralConfig 神经网络参数
type NeuralConfig struct {
	HistoryWindow int     `yaml:"history_window"`
	MinSamples    int     `yaml:"min_samples"`
	BatchSize     int     `yaml:"batch_size"`
	Epochs        int     `yaml:"epochs"`
	BufferSize    int     `yaml:"buffer_size"`
	LearningRate  float64 `yaml:"learning_rate"`
	Seed          uint64  `yaml:"seed"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.Database.Path = "mindreader.db"
	cfg.Http = HTTPConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		RateLimit:      20,
		RateBurst:      40,
	}
	cfg.Log = LogConfig{
		Level:      "info",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Console:    true,
	}
	cfg.Game = GameConfig{
		OptionCount:      2,
		DefaultPredictor: "Markov Chain",
		Language:         "en",
		Warmup:           true,
	}
	cfg.Predictors = PredictorsConfig{
		Markov: MarkovConfig{Order: 3, MaxContexts: 4096},
		Decay:  DecayConfig{Factor: 0.9},
		Neural: NeuralConfig{
			HistoryWindow: 8,
			MinSamples:    4,
			BatchSize:     8,
			Epochs:        2,
			BufferSize:    200,
			LearningRate:  0.01,
		},
	}
	return cfg
}

// Load 读取YAML配置, 未设置的字段保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Game.OptionCount < MinOptions || c.Game.OptionCount > MaxOptions {
		return fmt.Errorf("game.option_count must be between %d and %d, got %d",
			MinOptions, MaxOptions, c.Game.OptionCount)
	}
	if c.Http.Port < 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.Http.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}
	if c.Predictors.Markov.Order <= 0 {
		return fmt.Errorf("predictors.markov.order must be positive, got %d", c.Predictors.Markov.Order)
	}
	if f := c.Predictors.Decay.Factor; f <= 0 || f >= 1 {
		return fmt.Errorf("predictors.decay.factor must be in (0,1), got %.3f", f)
	}
	n := c.Predictors.Neural
	if n.HistoryWindow <= 0 || n.MinSamples <= 0 || n.BatchSize <= 0 || n.Epochs <= 0 || n.BufferSize <= 0 {
		return fmt.Errorf("predictors.neural sizes must be positive")
	}
	if n.MinSamples > n.BufferSize {
		return fmt.Errorf("predictors.neural.min_samples (%d) exceeds buffer_size (%d)", n.MinSamples, n.BufferSize)
	}
	if n.LearningRate <= 0 {
		return fmt.Errorf("predictors.neural.learning_rate must be positive")
	}
	return nil
}
