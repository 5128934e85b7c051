// Package bybit 定义 Bybit v5 公共行情消息类型。
package bybit

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Request 订阅与心跳请求
type Request struct {
	// Op 操作类型: subscribe, ping
	Op string `json:"op"`
	// Args 订阅主题，如 tickers.BTCUSDT
	Args []string `json:"args,omitempty"`
}

// Message Bybit 推送或响应
// 响应带 op 字段（subscribe / ping），推送带 topic + data。
type Message struct {
	// Op 响应对应的请求类型
	Op string `json:"op"`
	// Success 请求是否成功
	Success *bool `json:"success"`
	// RetMsg 响应消息
	RetMsg string `json:"ret_msg"`
	// Topic 主题: tickers.<SYMBOL>
	Topic string `json:"topic"`
	// Type 推送类型: snapshot, delta
	Type string `json:"type"`
	// Data ticker 数据
	Data json.RawMessage `json:"data"`
}

// TickerData tickers 主题数据
// delta 推送只携带变化字段，lastPrice 可能缺失。
type TickerData struct {
	// Symbol 交易对
	Symbol string `json:"symbol"`
	// LastPrice 最新成交价
	LastPrice decimal.NullDecimal `json:"lastPrice"`
}
