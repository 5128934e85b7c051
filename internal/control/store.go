// Package control 读写 Redis 中的路由选择（exchange_a / exchange_b / symbol）。
// 读取方只做值比较，不依赖版本号；写入方整体替换三个键，后写者生效。
package control

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"spread-signal-monitor/internal/core/model"
)

// 控制键
const (
	KeyExchangeA = "exchange_a"
	KeyExchangeB = "exchange_b"
	KeySymbol    = "symbol"
)

// Store 控制存储客户端
type Store struct {
	rdb redis.UniversalClient
}

// NewStore 创建控制存储客户端
func NewStore(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Selection 读取当前路由选择
// 不存在的键视为空字符串；读取失败返回错误（调用方按"未变化"处理）。
func (s *Store) Selection(ctx context.Context) (model.RoutingSelection, error) {
	vals, err := s.rdb.MGet(ctx, KeyExchangeA, KeyExchangeB, KeySymbol).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.RoutingSelection{}, fmt.Errorf("读取路由选择失败: %w", err)
	}

	str := func(i int) string {
		if i >= len(vals) || vals[i] == nil {
			return ""
		}
		if v, ok := vals[i].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	return model.RoutingSelection{
		ExchangeA: str(0),
		ExchangeB: str(1),
		Symbols:   ParseSymbols(str(2)),
	}, nil
}

// SetSelection 写入路由选择（单次 MULTI/EXEC）
func (s *Store) SetSelection(ctx context.Context, sel model.RoutingSelection) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, KeyExchangeA, sel.ExchangeA, 0)
		p.Set(ctx, KeyExchangeB, sel.ExchangeB, 0)
		p.Set(ctx, KeySymbol, strings.Join(sel.Symbols, ","), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入路由选择失败: %w", err)
	}
	return nil
}

// ParseSymbols 解析逗号分隔的交易对列表
// 去除空白与空项，统一转为大写，保持原有顺序。
func ParseSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
