// Package bybit 实现 Bybit linear 永续合约行情接入。
// 连接地址: wss://stream.bybit.com/v5/public/linear
// 订阅主题: tickers.<SYMBOL>
// 心跳机制: {"op":"ping"}，服务端回复 op=ping 的响应
package bybit

import (
	"encoding/json"
	"fmt"
	"strings"

	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/util/timeutil"
)

const topicPrefix = "tickers."

// Venue Bybit 接入描述
type Venue struct{}

// NewVenue 创建 Bybit 接入描述
func NewVenue() *Venue {
	return &Venue{}
}

// Name 交易所标识
func (v *Venue) Name() string {
	return model.ExchangeBybit
}

// Endpoint Bybit 使用固定地址
func (v *Venue) Endpoint(baseURL string, _ []string) (string, error) {
	return baseURL, nil
}

// SubscribeFrames 构建 tickers 订阅请求
func (v *Venue) SubscribeFrames(symbols []string) ([][]byte, error) {
	args := make([]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, topicPrefix+strings.ToUpper(s))
	}
	data, err := json.Marshal(Request{Op: "subscribe", Args: args})
	if err != nil {
		return nil, fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	return [][]byte{data}, nil
}

// Heartbeat 应用层 ping
func (v *Venue) Heartbeat() []byte {
	return []byte(`{"op":"ping"}`)
}

// NewDecoder 创建解码器
// 每条连接独立保存各交易对的上一笔价格。
func (v *Venue) NewDecoder() connector.Decoder {
	return NewDecoder()
}

// Decoder Bybit tickers 解码器
// delta 推送缺少 lastPrice 时沿用该交易对的上一笔价格。
type Decoder struct {
	lastPrice map[string]float64
}

// NewDecoder 创建解码器
func NewDecoder() *Decoder {
	return &Decoder{lastPrice: make(map[string]float64)}
}

// Decode 解析 Bybit 消息
func (d *Decoder) Decode(data []byte) ([]model.Tick, error) {
	observedAt := timeutil.NowNano()

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Bybit 消息失败: %w", err)
	}

	if msg.Op != "" {
		if msg.Success != nil && !*msg.Success {
			return nil, fmt.Errorf("Bybit %s 失败: %s", msg.Op, msg.RetMsg)
		}
		return nil, nil
	}

	if !strings.HasPrefix(msg.Topic, topicPrefix) {
		return nil, fmt.Errorf("未知 Bybit 消息: topic=%q", msg.Topic)
	}

	var td TickerData
	if err := json.Unmarshal(msg.Data, &td); err != nil {
		return nil, fmt.Errorf("解析 Bybit ticker 失败: %w", err)
	}
	sym := td.Symbol
	if sym == "" {
		sym = strings.TrimPrefix(msg.Topic, topicPrefix)
	}

	var price float64
	if td.LastPrice.Valid {
		price, _ = td.LastPrice.Decimal.Float64()
	}
	if price > 0 {
		d.lastPrice[sym] = price
	} else {
		prev, ok := d.lastPrice[sym]
		if !ok {
			// 尚无价格可沿用
			return nil, nil
		}
		price = prev
	}

	return []model.Tick{{
		Exchange:         model.ExchangeBybit,
		Symbol:           sym,
		Price:            price,
		ObservedAtUnixNs: observedAt,
	}}, nil
}
