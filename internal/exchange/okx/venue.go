// Package okx 实现 OKX USDT 永续合约行情接入。
// 连接地址: wss://ws.okx.com:8443/ws/v5/public
// 订阅频道: tickers
// 心跳机制: 文本 ping/pong
package okx

import (
	"encoding/json"
	"fmt"
	"strings"

	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/util/timeutil"
)

// Venue OKX 接入描述
type Venue struct{}

// NewVenue 创建 OKX 接入描述
func NewVenue() *Venue {
	return &Venue{}
}

// Name 交易所标识
func (v *Venue) Name() string {
	return model.ExchangeOKX
}

// Endpoint OKX 使用固定地址
func (v *Venue) Endpoint(baseURL string, _ []string) (string, error) {
	return baseURL, nil
}

// SubscribeFrames 构建 tickers 订阅请求
func (v *Venue) SubscribeFrames(symbols []string) ([][]byte, error) {
	args := make([]SubscribeArg, 0, len(symbols))
	for _, s := range symbols {
		instID, err := InstID(s)
		if err != nil {
			return nil, err
		}
		args = append(args, SubscribeArg{Channel: "tickers", InstId: instID})
	}

	data, err := json.Marshal(SubscribeRequest{Op: "subscribe", Args: args})
	if err != nil {
		return nil, fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	return [][]byte{data}, nil
}

// Heartbeat 文本 ping
func (v *Venue) Heartbeat() []byte {
	return []byte("ping")
}

// NewDecoder 创建解码器（无跨帧状态）
func (v *Venue) NewDecoder() connector.Decoder {
	return Decoder{}
}

// Decoder OKX tickers 解码器
type Decoder struct{}

// Decode 解析 OKX 消息
// pong 与订阅确认返回空列表；订阅错误返回错误。
func (Decoder) Decode(data []byte) ([]model.Tick, error) {
	if IsPong(data) {
		return nil, nil
	}
	observedAt := timeutil.NowNano()

	var msg TickersMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 OKX 消息失败: %w", err)
	}

	switch msg.Event {
	case "":
	case "error":
		return nil, fmt.Errorf("OKX 订阅错误: code=%s msg=%s", msg.Code, msg.Msg)
	default:
		return nil, nil
	}

	if msg.Arg == nil || msg.Data == nil {
		return nil, fmt.Errorf("未知 OKX 消息")
	}
	if msg.Arg.Channel != "tickers" {
		return nil, nil
	}

	ticks := make([]model.Tick, 0, len(msg.Data))
	for _, d := range msg.Data {
		sym := CanonSymbol(d.InstId)
		if sym == "" || !d.Last.IsPositive() {
			return nil, fmt.Errorf("OKX ticker 缺少合约或价格: instId=%s", d.InstId)
		}
		price, _ := d.Last.Float64()
		ticks = append(ticks, model.Tick{
			Exchange:         model.ExchangeOKX,
			Symbol:           sym,
			Price:            price,
			ObservedAtUnixNs: observedAt,
		})
	}
	return ticks, nil
}

// InstID 统一交易对转换为 OKX 永续合约 ID
// 例如 BTCUSDT -> BTC-USDT-SWAP（报价币固定取末 4 位）
func InstID(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if len(s) <= 4 {
		return "", fmt.Errorf("无法转换为 OKX 合约 ID: %q", symbol)
	}
	return s[:len(s)-4] + "-" + s[len(s)-4:] + "-SWAP", nil
}

// CanonSymbol OKX 合约 ID 转换为统一交易对
// 例如 BTC-USDT-SWAP -> BTCUSDT
func CanonSymbol(instID string) string {
	parts := strings.Split(instID, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + parts[1]
}

// IsPong 判断是否为 pong 响应
func IsPong(data []byte) bool {
	return string(data) == "pong"
}
