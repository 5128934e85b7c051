// Package timeutil 提供行情到达与发布使用的纳秒时间戳。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 使用“单调时钟 + 启动时 Unix 时间”组合实现：
// NowNano = baseUnixNs + time.Since(baseTime).Nanoseconds()
// 系统时间跳变（NTP/手动调整）时相邻时间戳之差仍保持单调，到达间隔统计不受影响。
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NanoToMs 将纳秒时间戳转换为毫秒
func NanoToMs(ns int64) int64 {
	return ns / 1_000_000
}

// SinceMs 计算从指定纳秒时间戳到现在的毫秒数
// 参数 startNs: 开始时间（纳秒）
func SinceMs(startNs int64) int64 {
	return NanoToMs(NowNano() - startNs)
}
