// Package model 定义行情分发与价差信号中使用的核心数据结构。
// 包含归一化 Tick、路由选择、连接器状态、信号决策与快照等类型。
package model

// Exchange 交易所标识常量
const (
	// ExchangeBinance Binance 交易所（U 本位永续）
	ExchangeBinance = "binance"
	// ExchangeOKX OKX 交易所（USDT 永续）
	ExchangeOKX = "okx"
	// ExchangeBybit Bybit 交易所（linear 永续）
	ExchangeBybit = "bybit"
	// ExchangeBitget Bitget 交易所（USDT-FUTURES）
	ExchangeBitget = "bitget"
)

// KnownExchanges 返回所有已支持的交易所标识
func KnownExchanges() []string {
	return []string{ExchangeBinance, ExchangeOKX, ExchangeBybit, ExchangeBitget}
}

// IsKnownExchange 判断交易所标识是否受支持
func IsKnownExchange(name string) bool {
	for _, ex := range KnownExchanges() {
		if ex == name {
			return true
		}
	}
	return false
}

// Tick 统一行情记录
// 由连接器从交易所原始消息解码得到，构造后只读，经总线投递一次后即丢弃。
type Tick struct {
	// Exchange 交易所标识: binance, okx, bybit, bitget
	Exchange string
	// Symbol 统一交易对标识，如 BTCUSDT
	Symbol string
	// Price 最新成交价
	Price float64
	// ObservedAtUnixNs 本机观察到该价格的时间戳（纳秒）
	ObservedAtUnixNs int64
}

// IsValid 检查 Tick 是否有效
// 有效条件: 交易所与交易对非空，价格大于 0
func (t Tick) IsValid() bool {
	return t.Exchange != "" && t.Symbol != "" && t.Price > 0
}
