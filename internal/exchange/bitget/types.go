// Package bitget 定义 Bitget v2 公共行情消息类型。
package bitget

import "github.com/shopspring/decimal"

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	// Op 操作类型: subscribe
	Op string `json:"op"`
	// Args 订阅参数列表
	Args []SubscribeArg `json:"args"`
}

// SubscribeArg 订阅参数
type SubscribeArg struct {
	// InstType 产品类型: USDT-FUTURES
	InstType string `json:"instType"`
	// Channel 频道: ticker
	Channel string `json:"channel"`
	// InstId 交易对，如 BTCUSDT
	InstId string `json:"instId"`
}

// Message 推送或事件消息
// 事件消息带 event（subscribe / error），推送带 action（snapshot / update）。
type Message struct {
	// Event 事件类型
	Event string `json:"event"`
	// Code 错误码
	Code any `json:"code"`
	// Msg 错误消息
	Msg string `json:"msg"`
	// Action 推送类型: snapshot, update
	Action string `json:"action"`
	// Arg 订阅参数
	Arg SubscribeArg `json:"arg"`
	// Data ticker 数据列表
	Data []TickerData `json:"data"`
}

// TickerData ticker 数据
type TickerData struct {
	// InstId 交易对
	InstId string `json:"instId"`
	// LastPr 最新成交价
	LastPr decimal.Decimal `json:"lastPr"`
}
