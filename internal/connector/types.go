package connector

import (
	"context"

	"spread-signal-monitor/internal/core/model"
)

// ControlReader 读取当前路由选择
type ControlReader interface {
	Selection(ctx context.Context) (model.RoutingSelection, error)
}

// Publisher 发布 Tick 到总线
type Publisher interface {
	Publish(ctx context.Context, tick model.Tick) error
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// Exchange 交易所
	Exchange string `json:"exchange"`
	// Active 是否活跃
	Active bool `json:"active"`
	// Connected 当前是否持有连接
	Connected bool `json:"connected"`
	// ReconnectCount 重连次数（含重新配置）
	ReconnectCount int64 `json:"reconnect_count"`
	// ReconfigureCount 因路由选择变化断开的次数
	ReconfigureCount int64 `json:"reconfigure_count"`
	// DecodeErrorCount 解码错误次数
	DecodeErrorCount int64 `json:"decode_error_count"`
	// PublishErrorCount 发布失败次数
	PublishErrorCount int64 `json:"publish_error_count"`
	// TicksPublished 已发布 Tick 数
	TicksPublished int64 `json:"ticks_published"`
	// LastMessageAgeMs 最后消息距今时间（毫秒），从未收到为 -1
	LastMessageAgeMs int64 `json:"last_message_age_ms"`
}
