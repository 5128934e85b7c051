// Package metadata 从交易所公共 API 获取 USDT 永续合约列表，用于切换路由前校验交易对。
package metadata

// OKXResponse OKX 合约元数据 API 响应
// API: GET /api/v5/public/instruments?instType=SWAP
type OKXResponse struct {
	// Code 响应码，"0" 表示成功
	Code string `json:"code"`
	// Msg 错误消息
	Msg string `json:"msg"`
	// Data 合约列表
	Data []OKXInstrument `json:"data"`
}

// OKXInstrument OKX 合约信息
type OKXInstrument struct {
	// InstId 合约 ID，如 BTC-USDT-SWAP
	InstId string `json:"instId"`
	// InstType 合约类型: SWAP（永续）, FUTURES（交割）
	InstType string `json:"instType"`
	// Uly 标的指数，如 BTC-USDT
	Uly string `json:"uly"`
	// CtType 合约类型: linear（正向）, inverse（反向）
	CtType string `json:"ctType"`
	// SettleCcy 结算币种: USDT, BTC 等
	SettleCcy string `json:"settleCcy"`
	// State 合约状态: live, suspend, preopen
	State string `json:"state"`
}

// IsUSDTLinearSwap 判断是否为可交易的 USDT 正向永续合约
// 条件: instType=SWAP, ctType=linear, settleCcy=USDT, state=live
func (i *OKXInstrument) IsUSDTLinearSwap() bool {
	return i.InstType == "SWAP" && i.CtType == "linear" && i.SettleCcy == "USDT" && i.State == "live"
}

// BinanceResponse Binance 合约元数据 API 响应
// API: GET /fapi/v1/exchangeInfo
type BinanceResponse struct {
	// Symbols 交易对列表
	Symbols []BinanceSymbol `json:"symbols"`
}

// BinanceSymbol Binance 合约信息
type BinanceSymbol struct {
	// Symbol 交易对，如 BTCUSDT
	Symbol string `json:"symbol"`
	// ContractType 合约类型: PERPETUAL（永续）, CURRENT_QUARTER（当季）
	ContractType string `json:"contractType"`
	// Status 交易对状态: TRADING, BREAK
	Status string `json:"status"`
	// QuoteAsset 报价资产，如 USDT
	QuoteAsset string `json:"quoteAsset"`
}

// IsUSDTPerpetual 判断是否为 USDT 永续合约
// 条件: contractType=PERPETUAL, quoteAsset=USDT, status=TRADING
func (s *BinanceSymbol) IsUSDTPerpetual() bool {
	return s.ContractType == "PERPETUAL" && s.QuoteAsset == "USDT" && s.Status == "TRADING"
}

// BybitResponse Bybit 合约元数据 API 响应
// API: GET /v5/market/instruments-info?category=linear
type BybitResponse struct {
	// RetCode 响应码，0 表示成功
	RetCode int `json:"retCode"`
	// RetMsg 响应消息
	RetMsg string `json:"retMsg"`
	// Result 结果
	Result struct {
		// List 合约列表
		List []BybitInstrument `json:"list"`
		// NextPageCursor 下一页游标，为空表示最后一页
		NextPageCursor string `json:"nextPageCursor"`
	} `json:"result"`
}

// BybitInstrument Bybit 合约信息
type BybitInstrument struct {
	// Symbol 交易对，如 BTCUSDT
	Symbol string `json:"symbol"`
	// ContractType 合约类型: LinearPerpetual, LinearFutures
	ContractType string `json:"contractType"`
	// Status 状态: Trading, PreLaunch, Settling
	Status string `json:"status"`
	// QuoteCoin 报价币种
	QuoteCoin string `json:"quoteCoin"`
}

// IsUSDTPerpetual 判断是否为可交易的 USDT 永续合约
func (i *BybitInstrument) IsUSDTPerpetual() bool {
	return i.ContractType == "LinearPerpetual" && i.QuoteCoin == "USDT" && i.Status == "Trading"
}

// BitgetResponse Bitget 合约元数据 API 响应
// API: GET /api/v2/mix/market/contracts?productType=USDT-FUTURES
type BitgetResponse struct {
	// Code 响应码，"00000" 表示成功
	Code string `json:"code"`
	// Msg 响应消息
	Msg string `json:"msg"`
	// Data 合约列表
	Data []BitgetContract `json:"data"`
}

// BitgetContract Bitget 合约信息
type BitgetContract struct {
	// Symbol 交易对，如 BTCUSDT
	Symbol string `json:"symbol"`
	// QuoteCoin 报价币种
	QuoteCoin string `json:"quoteCoin"`
	// SymbolType 合约类型: perpetual, delivery
	SymbolType string `json:"symbolType"`
	// SymbolStatus 状态: normal, maintain, off
	SymbolStatus string `json:"symbolStatus"`
}

// IsUSDTPerpetual 判断是否为可交易的 USDT 永续合约
func (c *BitgetContract) IsUSDTPerpetual() bool {
	return c.SymbolType == "perpetual" && c.QuoteCoin == "USDT" && c.SymbolStatus == "normal"
}
