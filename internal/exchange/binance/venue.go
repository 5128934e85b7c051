// Package binance 实现 Binance U 本位合约行情接入。
// 连接地址: wss://fstream.binance.com/stream?streams=<symbol>@ticker/...
// 订阅方式: 交易对写在 URL 中，无需发送订阅帧
// 心跳机制: 服务端发起协议层 ping，客户端定期发送协议层 ping
package binance

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/util/timeutil"
)

// Venue Binance 接入描述
type Venue struct{}

// NewVenue 创建 Binance 接入描述
func NewVenue() *Venue {
	return &Venue{}
}

// Name 交易所标识
func (v *Venue) Name() string {
	return model.ExchangeBinance
}

// Endpoint 生成组合流地址
// 参数 baseURL: 如 wss://fstream.binance.com/stream
// 参数 symbols: 统一交易对，如 BTCUSDT
func (v *Venue) Endpoint(baseURL string, symbols []string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("解析 Binance 地址失败: %w", err)
	}
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// SubscribeFrames 交易对已包含在 URL 中
func (v *Venue) SubscribeFrames([]string) ([][]byte, error) {
	return nil, nil
}

// Heartbeat 使用协议层 ping
func (v *Venue) Heartbeat() []byte {
	return nil
}

// NewDecoder 创建解码器（无跨帧状态）
func (v *Venue) NewDecoder() connector.Decoder {
	return Decoder{}
}

// Decoder Binance ticker 解码器
type Decoder struct{}

// Decode 解析组合流消息
// 返回: 0 或 1 个 Tick（控制响应返回空列表）
func (Decoder) Decode(data []byte) ([]model.Tick, error) {
	observedAt := timeutil.NowNano()

	var msg CombinedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	if msg.Stream == "" {
		var resp ControlResponse
		if err := json.Unmarshal(data, &resp); err == nil && resp.ID != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("未知 Binance 消息")
	}

	if msg.Data.Symbol == "" || !msg.Data.LastPrice.IsPositive() {
		return nil, fmt.Errorf("Binance ticker 缺少交易对或价格: stream=%s", msg.Stream)
	}

	price, _ := msg.Data.LastPrice.Float64()
	return []model.Tick{{
		Exchange:         model.ExchangeBinance,
		Symbol:           strings.ToUpper(msg.Data.Symbol),
		Price:            price,
		ObservedAtUnixNs: observedAt,
	}}, nil
}
