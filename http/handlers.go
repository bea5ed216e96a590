package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"mindreader/db"
	"mindreader/game"
	"mindreader/ml"
	"mindreader/monitoring"
)

// StatsStore 统计数据来源
type StatsStore interface {
	LoadPredictorStats(ctx context.Context) ([]db.PredictorStats, error)
	LoadBenchLog(ctx context.Context, limit int) ([]db.BenchResult, error)
}

// API HTTP接口依赖; Stats / Hub / Metrics 可为 nil
type API struct {
	Game     *game.Game
	Registry *ml.Registry
	Stats    StatsStore
	Hub      *monitoring.WebSocketHub
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// PredictorInfo 预测器描述
type PredictorInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Processing  bool   `json:"processing"`
}

type choiceRequest struct {
	Choice *int `json:"choice"`
}

type predictorRequest struct {
	Name string `json:"name"`
}

type optionsRequest struct {
	OptionCount int `json:"option_count"`
}

func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /api/health", handleHealth)
	if api == nil {
		return
	}
	if api.Logger == nil {
		api.Logger = zap.NewNop()
	}

	mux.HandleFunc("GET /api/state", api.handleState)
	mux.HandleFunc("GET /api/predictors", api.handlePredictors)
	mux.HandleFunc("GET /api/stats", api.handleStats)
	mux.HandleFunc("POST /api/choice", api.handleChoice)
	mux.HandleFunc("POST /api/predictor", api.handleSelectPredictor)
	mux.HandleFunc("POST /api/reset", api.handleReset)
	mux.HandleFunc("POST /api/options", api.handleOptions)

	if api.Hub != nil {
		mux.HandleFunc("GET /api/ws", api.Hub.HandleWebSocket)
	}
	if api.Metrics != nil {
		mux.Handle("GET /metrics", api.Metrics.Handler())
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Game.State())
}

func (a *API) handlePredictors(w http.ResponseWriter, r *http.Request) {
	predictors := a.Registry.List()
	infos := make([]PredictorInfo, 0, len(predictors))
	for _, p := range predictors {
		infos = append(infos, PredictorInfo{
			Name:        p.Name(),
			Description: p.Description(),
			Processing:  p.IsProcessing(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected":   a.Game.State().Predictor,
		"predictors": infos,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.Stats == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics are not available")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	stats, err := a.Stats.LoadPredictorStats(r.Context())
	if err != nil {
		a.Logger.Error("failed to load predictor stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	bench, err := a.Stats.LoadBenchLog(r.Context(), limit)
	if err != nil {
		a.Logger.Error("failed to load bench log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictors": stats,
		"bench":      bench,
	})
}

func (a *API) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a.run(w, r, monitoring.Command{Type: CommandChoice, Choice: req.Choice})
}

func (a *API) handleSelectPredictor(w http.ResponseWriter, r *http.Request) {
	var req predictorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	a.run(w, r, monitoring.Command{Type: CommandSelect, Predictor: req.Name})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, monitoring.Command{Type: CommandReset})
}

func (a *API) handleOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a.run(w, r, monitoring.Command{Type: CommandOptions, OptionCount: req.OptionCount})
}

// run 执行指令, 把结果广播给 WebSocket 客户端后返回给调用方
func (a *API) run(w http.ResponseWriter, r *http.Request, cmd monitoring.Command) {
	msgType, data, err := a.HandleCommand(r.Context(), cmd)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, game.ErrInvalidChoice) ||
			errors.Is(err, game.ErrInvalidOptionCount) ||
			errors.Is(err, ErrUnknownCommand) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	if a.Hub != nil {
		if err := a.Hub.Broadcast(msgType, data); err != nil {
			a.Logger.Warn("broadcast failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
