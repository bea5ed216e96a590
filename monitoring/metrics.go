package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 对局指标, 使用独立的 Registry 以便测试中重复创建
type Metrics struct {
	registry *prometheus.Registry

	roundsTotal    *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	updateErrors   *prometheus.CounterVec
	processing     *prometheus.GaugeVec
	wsClients      prometheus.Gauge
	wsMessages     *prometheus.CounterVec
}

// NewMetrics 创建指标收集器
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		roundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindreader_rounds_total",
			Help: "Rounds played by predictor and result",
		}, []string{"predictor", "result"}),
		updateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindreader_predictor_update_duration_seconds",
			Help:    "Time spent in predictor updates, including training",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"predictor"}),
		updateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindreader_predictor_update_errors_total",
			Help: "Predictor updates that returned an error",
		}, []string{"predictor"}),
		processing: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mindreader_predictor_processing",
			Help: "1 while a predictor is training",
		}, []string{"predictor"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mindreader_ws_clients",
			Help: "Connected websocket clients",
		}),
		wsMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindreader_ws_messages_total",
			Help: "Websocket messages by direction",
		}, []string{"direction"}),
	}
}

// ObserveRound 记录回合结果
func (m *Metrics) ObserveRound(predictor string, correct bool) {
	result := "human"
	if correct {
		result = "machine"
	}
	m.roundsTotal.WithLabelValues(predictor, result).Inc()
}

// ObserveUpdate 记录预测器更新耗时
func (m *Metrics) ObserveUpdate(predictor string, duration time.Duration, err error) {
	m.updateDuration.WithLabelValues(predictor).Observe(duration.Seconds())
	if err != nil {
		m.updateErrors.WithLabelValues(predictor).Inc()
	}
}

// SetProcessing 记录训练状态
func (m *Metrics) SetProcessing(predictor string, busy bool) {
	v := 0.0
	if busy {
		v = 1
	}
	m.processing.WithLabelValues(predictor).Set(v)
}

func (m *Metrics) clientConnected()    { m.wsClients.Inc() }
func (m *Metrics) clientDisconnected() { m.wsClients.Dec() }
func (m *Metrics) messageSent()        { m.wsMessages.WithLabelValues("out").Inc() }
func (m *Metrics) messageReceived()    { m.wsMessages.WithLabelValues("in").Inc() }

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
