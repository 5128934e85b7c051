package model

import "strings"

// RoutingSelection 当前生效的路由选择
// 由控制存储持有，操作员整体替换；读取方通过值比较发现变化（无版本号）。
type RoutingSelection struct {
	// ExchangeA A 侧交易所
	ExchangeA string
	// ExchangeB B 侧交易所
	ExchangeB string
	// Symbols 交易对列表（有序）
	Symbols []string
}

// Equal 判断两个路由选择是否完全一致（交易对顺序敏感）
func (s RoutingSelection) Equal(o RoutingSelection) bool {
	if s.ExchangeA != o.ExchangeA || s.ExchangeB != o.ExchangeB {
		return false
	}
	if len(s.Symbols) != len(o.Symbols) {
		return false
	}
	for i := range s.Symbols {
		if s.Symbols[i] != o.Symbols[i] {
			return false
		}
	}
	return true
}

// Involves 判断交易所是否为 A 侧或 B 侧
func (s RoutingSelection) Involves(exchange string) bool {
	if exchange == "" {
		return false
	}
	return s.ExchangeA == exchange || s.ExchangeB == exchange
}

// IsComplete 判断选择是否足以确定一对价差通道
func (s RoutingSelection) IsComplete() bool {
	return s.ExchangeA != "" && s.ExchangeB != "" && s.PrimarySymbol() != ""
}

// PrimarySymbol 聚合器配对使用的交易对（第一个）
func (s RoutingSelection) PrimarySymbol() string {
	if len(s.Symbols) == 0 {
		return ""
	}
	return s.Symbols[0]
}

// Clone 创建深拷贝，避免缓存副本与外部共享底层数组
func (s RoutingSelection) Clone() RoutingSelection {
	c := s
	if s.Symbols != nil {
		c.Symbols = make([]string, len(s.Symbols))
		copy(c.Symbols, s.Symbols)
	}
	return c
}

// String 便于日志输出
func (s RoutingSelection) String() string {
	return s.ExchangeA + "/" + s.ExchangeB + "[" + strings.Join(s.Symbols, ",") + "]"
}

// ConnectorState 连接器自身状态
// 仅由连接器的控制轮询步骤修改，连接循环读取以决定重连还是空闲。
type ConnectorState struct {
	// Exchange 本连接器负责的交易所
	Exchange string
	// Active 是否为当前选择的 A 侧或 B 侧
	Active bool
	// Symbols 当前负责的交易对；非活跃时必须为空
	Symbols []string
}
