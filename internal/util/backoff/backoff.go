// Package backoff 计算重连等待时间。
// 连接器使用固定间隔（断线与重新配置后的恢复时延有上界）；
// 聚合器重建总线订阅时使用带抖动的指数退避。
package backoff

import (
	"math/rand"
	"time"
)

// Backoff 退避计算器
// 每次调用 Next() 返回下一次重试的等待时间；base == max 时退化为固定间隔。
// 非并发安全，由单个重连循环独占。
type Backoff struct {
	// base 基础等待时间
	base time.Duration
	// max 最大等待时间
	max time.Duration
	// jitter 抖动比例（0-1），例如 0.2 表示 ±20%
	jitter float64
	// attempt 当前重试次数
	attempt int
}

// New 创建指数退避计算器
// 参数 base: 基础等待时间
// 参数 max: 最大等待时间
// 参数 jitter: 抖动比例（0 表示不抖动）
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{
		base:   base,
		max:    max,
		jitter: jitter,
	}
}

// NewFixed 创建固定间隔计算器（无抖动、不增长）
// 参数 d: 每次重试前的等待时间
func NewFixed(d time.Duration) *Backoff {
	return New(d, d, 0)
}

// NewDefault 创建默认配置的退避计算器
// 基础间隔 1s，最大间隔 30s，抖动 ±20%
func NewDefault() *Backoff {
	return New(time.Second, 30*time.Second, 0.2)
}

// Next 获取下次重试的等待时间
// 计算公式: min(base * 2^attempt, max)，然后应用抖动
func (b *Backoff) Next() time.Duration {
	delay := b.base
	for i := 0; i < b.attempt && delay < b.max; i++ {
		delay *= 2
	}
	if delay > b.max {
		delay = b.max
	}

	if b.jitter > 0 {
		jitterFactor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	// 达到上限后不再累加，避免长时间断线后计数溢出
	if b.base<<b.attempt < b.max {
		b.attempt++
	}
	return delay
}

// Reset 重置退避计算器
// 在连接成功后调用
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt 获取当前重试次数（达到上限后不再增长）
func (b *Backoff) Attempt() int {
	return b.attempt
}
