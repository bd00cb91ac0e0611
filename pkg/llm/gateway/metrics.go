package gateway

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus 指标
// ═══════════════════════════════════════════════════════════════════════════

// Metrics 网关指标
//
// nil *Metrics 是合法值，所有记录方法都是空操作。
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	streamEvents *prometheus.CounterVec
}

// NewMetrics 创建并注册网关指标
//
// reg 为 nil 时注册到 prometheus.DefaultRegisterer。
// 同一个 Registerer 只能注册一次，重复注册会 panic。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgw_requests_total",
				Help: "Total chat exchanges by provider, mode and outcome.",
			},
			[]string{"provider", "mode", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatgw_request_duration_ms",
				Help:    "Chat exchange duration in milliseconds.",
				Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
			},
			[]string{"provider", "mode"},
		),
		streamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgw_stream_events_total",
				Help: "Total normalized stream events by provider and type.",
			},
			[]string{"provider", "type"},
		),
	}

	reg.MustRegister(m.requests, m.latency, m.streamEvents)
	return m
}

// observeRequest 记录一次交换的结果
func (m *Metrics) observeRequest(providerName, mode string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(providerName, mode, outcome(err)).Inc()
	m.latency.WithLabelValues(providerName, mode).Observe(float64(d.Milliseconds()))
}

// countEvents 包装 emit，统计经过的流式事件
func (m *Metrics) countEvents(providerName string, emit func(*llm.StreamEvent)) func(*llm.StreamEvent) {
	if m == nil {
		return emit
	}
	return func(ev *llm.StreamEvent) {
		m.streamEvents.WithLabelValues(providerName, string(ev.Type)).Inc()
		emit(ev)
	}
}

// outcome 把错误映射为低基数的标签值
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := llm.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return "error"
}
