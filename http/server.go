// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindreader/config"
)

const maxRequestBody = 1 << 16

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfigFrom(config.Default().Http)
}

// ServerConfigFrom 从应用配置构造
func ServerConfigFrom(cfg config.HTTPConfig) ServerConfig {
	return ServerConfig{
		Port:           cfg.Port,
		Timeout:        cfg.Timeout,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}
}

// NewServer 创建HTTP服务器
func NewServer(cfg ServerConfig, api *API, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux, api)

	chain := Chain(
		RecoveryMiddleware(logger),                        // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(logger),                          // 2. 日志中间件
		SecurityHeadersMiddleware,                         // 3. 安全头中间件
		CORSMiddleware(cfg.AllowedOrigins),                // 4. CORS中间件
		RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst), // 5. 速率限制
		RequestSizeMiddleware(maxRequestBody),             // 6. 请求大小限制
		TimeoutMiddleware(cfg.Timeout),                    // 7. 超时中间件
	)

	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     chain(mux),
			ReadTimeout: cfg.Timeout,
			IdleTimeout: 120 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// Handler 返回完整的处理器链
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start 启动服务器, 阻塞直到 Stop
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		zap.String("addr", s.server.Addr),
		zap.String("websocket", fmt.Sprintf("ws://localhost%s/api/ws", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
