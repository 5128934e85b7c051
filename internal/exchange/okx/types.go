// Package okx 定义 OKX 交易所消息类型。
package okx

import "github.com/shopspring/decimal"

// SubscribeRequest OKX 订阅请求
// 用于订阅 tickers 频道
type SubscribeRequest struct {
	// Op 操作类型: subscribe, unsubscribe
	Op string `json:"op"`
	// Args 订阅参数列表
	Args []SubscribeArg `json:"args"`
}

// SubscribeArg 订阅参数
type SubscribeArg struct {
	// Channel 频道名称: tickers
	Channel string `json:"channel"`
	// InstId 合约 ID: BTC-USDT-SWAP
	InstId string `json:"instId"`
}

// TickersMessage OKX 推送或事件消息
// 事件消息带 event 字段（subscribe / error），推送消息带 arg + data。
type TickersMessage struct {
	// Event 事件类型: subscribe, error
	Event string `json:"event"`
	// Code 错误码
	Code string `json:"code"`
	// Msg 错误消息
	Msg string `json:"msg"`
	// Arg 订阅参数
	Arg *SubscribeArg `json:"arg"`
	// Data ticker 数据列表
	Data []TickerData `json:"data"`
}

// TickerData OKX tickers 数据
// 字段映射: instId -> Symbol（去掉 -SWAP 并拼接），last -> LastPrice
type TickerData struct {
	// InstId 合约 ID
	InstId string `json:"instId"`
	// Last 最新成交价（字符串）
	Last decimal.Decimal `json:"last"`
	// Ts 交易所时间戳（毫秒字符串）
	Ts string `json:"ts"`
}
