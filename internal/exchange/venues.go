// Package exchange 按交易所标识创建接入描述。
package exchange

import (
	"fmt"

	"spread-signal-monitor/internal/connector"
	"spread-signal-monitor/internal/core/model"
	"spread-signal-monitor/internal/exchange/binance"
	"spread-signal-monitor/internal/exchange/bitget"
	"spread-signal-monitor/internal/exchange/bybit"
	"spread-signal-monitor/internal/exchange/okx"
)

// NewVenue 根据交易所标识创建接入描述
func NewVenue(name string) (connector.Venue, error) {
	switch name {
	case model.ExchangeBinance:
		return binance.NewVenue(), nil
	case model.ExchangeOKX:
		return okx.NewVenue(), nil
	case model.ExchangeBybit:
		return bybit.NewVenue(), nil
	case model.ExchangeBitget:
		return bitget.NewVenue(), nil
	default:
		return nil, fmt.Errorf("不支持的交易所: %s", name)
	}
}
