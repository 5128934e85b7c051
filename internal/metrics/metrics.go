// Package metrics 定义 Prometheus 指标并提供 /metrics 服务。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksPublished 连接器发布到总线的 Tick 数
	TicksPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_published_total", Help: "Ticks published to the tick bus"},
		[]string{"exchange", "symbol"},
	)
	// PublishErrors 发布失败次数
	PublishErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tick_publish_errors_total", Help: "Failed tick bus publishes"},
		[]string{"exchange"},
	)
	// DecodeErrors 单帧解码失败次数
	DecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "frame_decode_errors_total", Help: "Exchange frames that failed to decode"},
		[]string{"exchange"},
	)
	// Reconnects 连接断开后的重连次数（按原因）
	Reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "connector_reconnects_total", Help: "Connector teardowns followed by a reconnect"},
		[]string{"exchange", "reason"},
	)
	// ConnectorActive 连接器是否处于活跃状态（0/1）
	ConnectorActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "connector_active", Help: "1 when the connector is selected as side A or B"},
		[]string{"exchange"},
	)
	// SnapshotPrice 聚合器快照价格
	SnapshotPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "aggregator_snapshot_price", Help: "Price reported for each side in the latest snapshot"},
		[]string{"side"},
	)
	// SnapshotStale 聚合器快照中沿用旧价格的次数
	SnapshotStale = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_stale_quotes_total", Help: "Snapshot quotes carried forward from a previous period"},
		[]string{"side"},
	)
	// SpreadPct 最新百分比价差
	SpreadPct = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "aggregator_spread_pct", Help: "Latest spread as a percentage of side B"},
	)
	// Decisions 信号决策次数
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_decisions_total", Help: "Advisory decisions emitted by the signal engine"},
		[]string{"action", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksPublished,
		PublishErrors,
		DecodeErrors,
		Reconnects,
		ConnectorActive,
		SnapshotPrice,
		SnapshotStale,
		SpreadPct,
		Decisions,
	)
}

// Serve 在后台启动 /metrics 服务
// 参数 addr: 监听地址；为空时不启动并返回 nil
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
