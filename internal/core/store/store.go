// Package store 维护聚合器两侧通道的最新价格与沿用价格。
// 接收路径写入，快照路径读取并清除"本周期新值"标记，两者通过互斥锁串行化。
package store

import (
	"sync"

	"spread-signal-monitor/internal/core/model"
)

type entry struct {
	// latest 本周期最新价格
	latest float64
	// fresh 自上次快照后是否有新值
	fresh bool
	// carried 上一次快照输出的价格
	carried float64
	// known 是否输出过价格
	known bool
	// updatedAtUnixNs 最近一次写入时间
	updatedAtUnixNs int64
}

// Store 价格缓存
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New 创建价格缓存
func New() *Store {
	return &Store{
		entries: make(map[string]*entry, 2),
	}
}

// Update 写入通道最新价格
// 参数 channel: 总线通道名
// 参数 price: 最新价格
// 参数 atUnixNs: 到达时间（纳秒）
func (s *Store) Update(channel string, price float64, atUnixNs int64) {
	if channel == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[channel]
	if !ok {
		e = &entry{}
		s.entries[channel] = e
	}
	e.latest = price
	e.fresh = true
	e.updatedAtUnixNs = atUnixNs
}

// Snapshot 生成一个周期的报价并清除新值标记
// 本周期有新值则使用新值，否则沿用上一次快照的价格；从未收到过价格的通道 Known 为 false。
func (s *Store) Snapshot(channels ...string) []model.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := make([]model.Quote, len(channels))
	for i, ch := range channels {
		q := model.Quote{Channel: ch}
		e, ok := s.entries[ch]
		if ok {
			if e.fresh {
				e.carried = e.latest
				e.known = true
				e.fresh = false
				q.Fresh = true
			}
			q.Price = e.carried
			q.Known = e.known
		}
		quotes[i] = q
	}
	return quotes
}

// LastUpdate 返回通道最近一次写入时间（纳秒），未知通道返回 0
func (s *Store) LastUpdate(channel string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[channel]; ok {
		return e.updatedAtUnixNs
	}
	return 0
}

// Reset 清空所有通道（交易对切换时调用）
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry, 2)
}
