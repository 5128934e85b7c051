// Package binance 定义 Binance U 本位合约行情消息类型。
package binance

import "github.com/shopspring/decimal"

// CombinedMessage 组合流推送
// 形如 {"stream":"btcusdt@ticker","data":{...}}
type CombinedMessage struct {
	// Stream 流名称: <symbol>@ticker
	Stream string `json:"stream"`
	// Data 24hr ticker 数据
	Data TickerData `json:"data"`
}

// TickerData 24hr ticker 数据
// 字段映射: s -> Symbol, c -> LastPrice, E -> EventTimeMs
type TickerData struct {
	// EventType 事件类型: 24hrTicker
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对，如 BTCUSDT
	Symbol string `json:"s"`
	// LastPrice 最新成交价（字符串）
	LastPrice decimal.Decimal `json:"c"`
}

// ControlResponse 订阅/控制请求响应
// 通常形如 {"result":null,"id":1}。
type ControlResponse struct {
	// Result 结果（成功为 null）
	Result any `json:"result"`
	// ID 请求 ID
	ID *int64 `json:"id"`
}
