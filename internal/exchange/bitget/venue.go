// Package bitget 实现 Bitget USDT-FUTURES 行情接入。
// 连接地址: wss://ws.bitget.com/v2/ws/public
// 订阅频道: ticker
// 心跳机制: 文本 ping/pong
package bitget

import (
	"encoding/json"
	"fmt"
	"strings"

	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/util/timeutil"
)

// InstTypeUSDTFutures USDT 本位合约产品类型
const InstTypeUSDTFutures = "USDT-FUTURES"

// Venue Bitget 接入描述
type Venue struct{}

// NewVenue 创建 Bitget 接入描述
func NewVenue() *Venue {
	return &Venue{}
}

// Name 交易所标识
func (v *Venue) Name() string {
	return model.ExchangeBitget
}

// Endpoint Bitget 使用固定地址
func (v *Venue) Endpoint(baseURL string, _ []string) (string, error) {
	return baseURL, nil
}

// SubscribeFrames 构建 ticker 订阅请求
func (v *Venue) SubscribeFrames(symbols []string) ([][]byte, error) {
	args := make([]SubscribeArg, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, SubscribeArg{
			InstType: InstTypeUSDTFutures,
			Channel:  "ticker",
			InstId:   strings.ToUpper(s),
		})
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

// Decoder Bitget ticker 解码器
type Decoder struct{}

// Decode 解析 Bitget 消息
func (Decoder) Decode(data []byte) ([]model.Tick, error) {
	if string(data) == "pong" {
		return nil, nil
	}
	observedAt := timeutil.NowNano()

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Bitget 消息失败: %w", err)
	}

	switch msg.Event {
	case "":
	case "error":
		return nil, fmt.Errorf("Bitget 订阅错误: code=%v msg=%s", msg.Code, msg.Msg)
	default:
		return nil, nil
	}

	if msg.Action != "snapshot" && msg.Action != "update" {
		return nil, fmt.Errorf("未知 Bitget 消息: action=%q", msg.Action)
	}
	if msg.Arg.Channel != "ticker" {
		return nil, nil
	}

	ticks := make([]model.Tick, 0, len(msg.Data))
	for _, d := range msg.Data {
		sym := msg.Arg.InstId
		if sym == "" {
			sym = d.InstId
		}
		if sym == "" || !d.LastPr.IsPositive() {
			return nil, fmt.Errorf("Bitget ticker 缺少交易对或价格: instId=%s", sym)
		}
		price, _ := d.LastPr.Float64()
		ticks = append(ticks, model.Tick{
			Exchange:         model.ExchangeBitget,
			Symbol:           sym,
			Price:            price,
			ObservedAtUnixNs: observedAt,
		})
	}
	return ticks, nil
}
