package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spread-signal-monitor/internal/core/model"
)

// CheckSelection 校验路由选择中的交易对在两家交易所均为可交易的 USDT 永续合约
// 参数 urls: 各交易所合约列表地址
// 返回: 汇总所有缺失交易对的错误；全部存在时返回 nil
func CheckSelection(ctx context.Context, f Fetcher, urls map[string]string, sel model.RoutingSelection) error {
	var errs []error
	for _, ex := range []string{sel.ExchangeA, sel.ExchangeB} {
		url, ok := urls[ex]
		if !ok || url == "" {
			errs = append(errs, fmt.Errorf("%s: 未配置合约列表地址", ex))
			continue
		}

		listed, err := f.Listed(ctx, ex, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ex, err))
			continue
		}

		var missing []string
		for _, sym := range sel.Symbols {
			if _, ok := listed[NormalizeToCanon(sym)]; !ok {
				missing = append(missing, sym)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("%s 未找到交易对: %s", ex, strings.Join(missing, ",")))
		}
	}
	return errors.Join(errs...)
}

// NormalizeToCanon 标准化交易对格式
// 移除分隔符与 OKX 的 SWAP 后缀，转为大写
// 例如: BTC-USDT-SWAP -> BTCUSDT, btc_usdt -> BTCUSDT
func NormalizeToCanon(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "-SWAP")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}
