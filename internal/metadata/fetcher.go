package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"spread-signal-monitor/internal/core/model"
)

// maxBybitPages Bybit 分页拉取上限
const maxBybitPages = 10

// Fetcher 合约列表获取器接口
type Fetcher interface {
	// Listed 获取交易所可交易的 USDT 永续合约（key 为统一交易对，如 BTCUSDT）
	Listed(ctx context.Context, exchange, url string) (map[string]struct{}, error)
}

// HTTPFetcher HTTP 合约列表获取器
type HTTPFetcher struct {
	// client HTTP 客户端
	client *http.Client
}

// NewHTTPFetcher 创建 HTTP 合约列表获取器
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewHTTPFetcher(timeoutMs int) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

// Listed 按交易所分派到具体的解析逻辑
func (f *HTTPFetcher) Listed(ctx context.Context, exchange, url string) (map[string]struct{}, error) {
	switch exchange {
	case model.ExchangeBinance:
		return f.listBinance(ctx, url)
	case model.ExchangeOKX:
		return f.listOKX(ctx, url)
	case model.ExchangeBybit:
		return f.listBybit(ctx, url)
	case model.ExchangeBitget:
		return f.listBitget(ctx, url)
	default:
		return nil, fmt.Errorf("不支持的交易所: %s", exchange)
	}
}

func (f *HTTPFetcher) listOKX(ctx context.Context, url string) (map[string]struct{}, error) {
	var resp OKXResponse
	if err := f.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("请求 OKX 元数据失败: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("OKX API 返回错误: code=%s, msg=%s", resp.Code, resp.Msg)
	}

	out := make(map[string]struct{}, len(resp.Data))
	for i := range resp.Data {
		inst := &resp.Data[i]
		if inst.IsUSDTLinearSwap() {
			out[NormalizeToCanon(inst.InstId)] = struct{}{}
		}
	}
	return out, nil
}

func (f *HTTPFetcher) listBinance(ctx context.Context, url string) (map[string]struct{}, error) {
	var resp BinanceResponse
	if err := f.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("请求 Binance 元数据失败: %w", err)
	}

	out := make(map[string]struct{}, len(resp.Symbols))
	for i := range resp.Symbols {
		sym := &resp.Symbols[i]
		if sym.IsUSDTPerpetual() {
			out[NormalizeToCanon(sym.Symbol)] = struct{}{}
		}
	}
	return out, nil
}

// listBybit 跟随 nextPageCursor 分页拉取
func (f *HTTPFetcher) listBybit(ctx context.Context, rawURL string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	cursor := ""
	for page := 0; page < maxBybitPages; page++ {
		pageURL, err := withQuery(rawURL, "cursor", cursor)
		if err != nil {
			return nil, err
		}

		var resp BybitResponse
		if err := f.getJSON(ctx, pageURL, &resp); err != nil {
			return nil, fmt.Errorf("请求 Bybit 元数据失败: %w", err)
		}
		if resp.RetCode != 0 {
			return nil, fmt.Errorf("Bybit API 返回错误: code=%d, msg=%s", resp.RetCode, resp.RetMsg)
		}
		for i := range resp.Result.List {
			inst := &resp.Result.List[i]
			if inst.IsUSDTPerpetual() {
				out[NormalizeToCanon(inst.Symbol)] = struct{}{}
			}
		}

		cursor = resp.Result.NextPageCursor
		if cursor == "" {
			break
		}
	}
	return out, nil
}

func (f *HTTPFetcher) listBitget(ctx context.Context, url string) (map[string]struct{}, error) {
	var resp BitgetResponse
	if err := f.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("请求 Bitget 元数据失败: %w", err)
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("Bitget API 返回错误: code=%s, msg=%s", resp.Code, resp.Msg)
	}

	out := make(map[string]struct{}, len(resp.Data))
	for i := range resp.Data {
		c := &resp.Data[i]
		if c.IsUSDTPerpetual() {
			out[NormalizeToCanon(c.Symbol)] = struct{}{}
		}
	}
	return out, nil
}

// withQuery 设置查询参数；value 为空时原样返回
func withQuery(rawURL, key, value string) (string, error) {
	if value == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("解析地址失败: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// getJSON 执行 HTTP GET 请求并解析 JSON 响应
func (f *HTTPFetcher) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "spread-signal-monitor/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
